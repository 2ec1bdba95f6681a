package core

// Remote model names the bridge touches. The directory-user and contact
// models feed entity resolution; the student model is the resolution target.
const (
	ModelDirectoryUsers = "res.users"
	ModelContacts       = "res.partner"
	ModelStudents       = "op.student"
	ModelRegistry       = "ir.model"
)

// StudentFields is the fixed field set requested on every student search.
func StudentFields() []string {
	return []string{
		"id",
		"name",
		"first_name",
		"middle_name",
		"last_name",
		"gr_no",
		"email",
		"phone",
		"mobile",
		"birth_date",
		"gender",
		"partner_id",
		"user_id",
		"active",
	}
}

// DirectoryUserFields is the field set read from the remote account model.
func DirectoryUserFields() []string {
	return []string{"id", "name", "login", "email", "partner_id"}
}

// ContactFields is the field set read from the generic address-book model.
func ContactFields() []string {
	return []string{"id", "name", "email"}
}
