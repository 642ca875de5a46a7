package testutil

import (
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/directory"
)

// fixtureSeed keeps generated directories identical between runs.
const fixtureSeed = 42

// FakeGroups returns n groups with realistic Graph properties.
func FakeGroups(n int) []*directory.Group {
	f := gofakeit.New(fixtureSeed)

	groups := make([]*directory.Group, 0, n)
	for i := 0; i < n; i++ {
		name := f.Company() + " " + f.BuzzWord()
		nick := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
		created := f.Date()
		groups = append(groups, &directory.Group{
			ID:              f.UUID(),
			DisplayName:     name,
			Description:     f.Sentence(6),
			Mail:            nick + "@contoso.com",
			MailNickname:    nick,
			MailEnabled:     f.Bool(),
			SecurityEnabled: f.Bool(),
			GroupTypes:      []string{"Unified"},
			Visibility:      f.RandomString([]string{"Public", "Private"}),
			CreatedDateTime: &created,
		})
	}
	return groups
}

// FakeUsers returns n users with realistic Graph properties.
func FakeUsers(n int) []*directory.User {
	f := gofakeit.New(fixtureSeed)

	users := make([]*directory.User, 0, n)
	for i := 0; i < n; i++ {
		first, last := f.FirstName(), f.LastName()
		upn := strings.ToLower(first+"."+last) + "@contoso.com"
		enabled := f.Bool()
		users = append(users, &directory.User{
			ID:                f.UUID(),
			DisplayName:       first + " " + last,
			GivenName:         first,
			Surname:           last,
			UserPrincipalName: upn,
			Mail:              upn,
			JobTitle:          f.JobTitle(),
			OfficeLocation:    f.City(),
			MobilePhone:       f.Phone(),
			BusinessPhones:    []string{f.Phone()},
			PreferredLanguage: f.LanguageAbbreviation(),
			AccountEnabled:    &enabled,
		})
	}
	return users
}

// AsAny converts a typed slice for MockGraph.SetCollection.
func AsAny[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
