package ldapdir

import (
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/directory"
)

// Attributes requested for each entity kind.
var (
	userAttributes = []string{
		"entryUUID", "objectGUID", "cn", "displayName", "givenName", "sn",
		"userPrincipalName", "uid", "mail", "title", "physicalDeliveryOfficeName",
		"mobile", "telephoneNumber", "preferredLanguage", "userAccountControl",
	}
	groupAttributes = []string{
		"entryUUID", "objectGUID", "cn", "displayName", "description", "mail",
		"mailNickname", "groupType", "whenCreated", "createTimestamp",
	}
)

// AD userAccountControl and groupType flags.
const (
	uacAccountDisable = 0x2
	groupTypeSecurity = 0x80000000
)

// entryID picks entryUUID, then objectGUID, then the DN.
func entryID(e *ldap.Entry) string {
	if id := e.GetAttributeValue("entryUUID"); id != "" {
		return id
	}
	if raw := e.GetRawAttributeValue("objectGUID"); len(raw) == 16 {
		return guidString(raw)
	}
	return e.DN
}

// guidString formats an AD objectGUID. The first three fields are stored
// little-endian.
func guidString(raw []byte) string {
	b := make([]byte, 16)
	copy(b, raw)
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
	id, err := uuid.FromBytes(b)
	if err != nil {
		return ""
	}
	return id.String()
}

// entryName picks displayName, then cn.
func entryName(e *ldap.Entry) string {
	if name := e.GetAttributeValue("displayName"); name != "" {
		return name
	}
	return e.GetAttributeValue("cn")
}

// parseGeneralizedTime reads LDAP GeneralizedTime values such as
// "20240101120000Z" or "20240101120000.0Z".
func parseGeneralizedTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse("20060102150405Z0700", v)
	if err != nil {
		return nil
	}
	return &t
}

// UserFromEntry maps an LDAP entry to a directory user.
func UserFromEntry(e *ldap.Entry) *directory.User {
	if e == nil {
		return nil
	}

	upn := e.GetAttributeValue("userPrincipalName")
	if upn == "" {
		upn = e.GetAttributeValue("uid")
	}

	u := &directory.User{
		ID:                entryID(e),
		DisplayName:       entryName(e),
		GivenName:         e.GetAttributeValue("givenName"),
		Surname:           e.GetAttributeValue("sn"),
		UserPrincipalName: upn,
		Mail:              e.GetAttributeValue("mail"),
		JobTitle:          e.GetAttributeValue("title"),
		OfficeLocation:    e.GetAttributeValue("physicalDeliveryOfficeName"),
		MobilePhone:       e.GetAttributeValue("mobile"),
		BusinessPhones:    e.GetAttributeValues("telephoneNumber"),
		PreferredLanguage: e.GetAttributeValue("preferredLanguage"),
	}
	if len(u.BusinessPhones) == 0 {
		u.BusinessPhones = nil
	}
	if uac, err := strconv.ParseInt(e.GetAttributeValue("userAccountControl"), 10, 64); err == nil {
		enabled := uac&uacAccountDisable == 0
		u.AccountEnabled = &enabled
	}
	return u
}

// GroupFromEntry maps an LDAP entry to a directory group. Groups without an
// AD groupType are treated as security groups.
func GroupFromEntry(e *ldap.Entry) *directory.Group {
	if e == nil {
		return nil
	}

	g := &directory.Group{
		ID:              entryID(e),
		DisplayName:     entryName(e),
		Description:     e.GetAttributeValue("description"),
		Mail:            e.GetAttributeValue("mail"),
		MailNickname:    e.GetAttributeValue("mailNickname"),
		SecurityEnabled: true,
	}
	g.MailEnabled = g.Mail != ""

	// groupType is a signed 32-bit value in AD.
	if gt, err := strconv.ParseInt(e.GetAttributeValue("groupType"), 10, 64); err == nil {
		g.SecurityEnabled = uint32(gt)&groupTypeSecurity != 0
	}

	created := e.GetAttributeValue("whenCreated")
	if created == "" {
		created = e.GetAttributeValue("createTimestamp")
	}
	g.CreatedDateTime = parseGeneralizedTime(created)

	return g
}
