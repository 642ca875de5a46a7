package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Characters rejected in file names on at least one supported platform.
const illegalNameChars = `/\:*?"<>|`

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// MaxStemBytes bounds a sanitized stem so that "stem (n).json" stays under
// the 255 byte NAME_MAX of common filesystems.
const MaxStemBytes = 200

// SanitizeName turns a display name into a file name stem:
//   - control characters are dropped
//   - path separators and characters reserved by Windows become '_'
//   - trailing dots and spaces are trimmed
//   - the result is cut to MaxStemBytes on a rune boundary
//   - an empty result becomes "_"
//   - reserved device names (CON, NUL.txt, ...) get an '_' appended
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
		case strings.ContainsRune(illegalNameChars, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	stem := strings.TrimRight(b.String(), ". ")
	if len(stem) > MaxStemBytes {
		cut := MaxStemBytes
		for cut > 0 && !utf8.RuneStart(stem[cut]) {
			cut--
		}
		stem = strings.TrimRight(stem[:cut], ". ")
	}
	if stem == "" {
		return "_"
	}

	device, _, _ := strings.Cut(stem, ".")
	if reservedNames[strings.ToUpper(strings.TrimRight(device, " "))] {
		return stem + "_"
	}
	return stem
}

// candidateName returns the n-th file name tried for stem: "stem.json" for
// n == 1, "stem (n).json" afterwards.
func candidateName(stem string, n int) string {
	if n <= 1 {
		return stem + ".json"
	}
	return fmt.Sprintf("%s (%d).json", stem, n)
}

// writeUnique writes data to the first free candidate name in dir. Files are
// created with O_EXCL, so a name taken between the check and the write is
// skipped rather than overwritten. On failure the returned path is the file
// that was attempted; a partially written file is removed.
func writeUnique(dir, stem string, data []byte, mode os.FileMode) (string, error) {
	for n := 1; ; n++ {
		path := filepath.Join(dir, candidateName(stem, n))

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return path, err
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return path, err
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return path, err
		}
		return path, nil
	}
}
