package ldapdir

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// Page is one paged-results response.
type Page struct {
	Entries []*ldap.Entry
	// Cookie is the server's paging cookie; empty on the last page.
	Cookie []byte
}

// NextPageCursor implements pagination.Cursor. The cursor is the base64
// encoded paging cookie.
func (p *Page) NextPageCursor() string {
	if p == nil || len(p.Cookie) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(p.Cookie)
}

// searchPage runs one paged search. A nil cookie requests the first page.
func searchPage(ctx context.Context, s Searcher, cfg Config, filter string, attrs []string, cookie []byte) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paging := ldap.NewControlPaging(cfg.PageSize)
	if len(cookie) > 0 {
		paging.SetCookie(cookie)
	}

	req := ldap.NewSearchRequest(
		cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		int(cfg.Timeout.Seconds()),
		false,
		filter,
		attrs,
		[]ldap.Control{paging},
	)

	res, err := s.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", cfg.BaseDN, err)
	}

	page := &Page{Entries: res.Entries}
	if ctrl, ok := ldap.FindControl(res.Controls, ldap.ControlTypePaging).(*ldap.ControlPaging); ok {
		page.Cookie = ctrl.Cookie
	}
	return page, nil
}

func decodeCursor(cursor string) ([]byte, error) {
	cookie, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode paging cookie: %w", err)
	}
	return cookie, nil
}
