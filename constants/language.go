package constants

// LanguageRole names a slot in the multilingual record.
type LanguageRole string

const (
	RoleOriginal LanguageRole = "original"
	RoleEnglish  LanguageRole = "english"
	RoleGerman   LanguageRole = "german"
)

const (
	LangEnglish = "en"
	LangGerman  = "de"
)

// AvailableRoles lists the roles every structured record carries, in display order.
func AvailableRoles() []LanguageRole {
	return []LanguageRole{RoleOriginal, RoleEnglish, RoleGerman}
}
