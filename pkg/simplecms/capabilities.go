package simplecms

// CapabilitySet holds the seven capability names derived from a post type's
// singular and plural keys.
type CapabilitySet struct {
	Edit        string // edit_{singular}
	Read        string // read_{singular}
	Delete      string // delete_{singular}
	EditMany    string // edit_{plural}
	EditOthers  string // edit_others_{plural}
	Publish     string // publish_{plural}
	ReadPrivate string // read_private_{plural}
}

// CapabilitiesFor derives the capability names for a type's keys. For a type
// with keys "book"/"books" it yields edit_book, read_book, delete_book,
// edit_books, edit_others_books, publish_books, read_private_books.
func CapabilitiesFor(singular, plural string) CapabilitySet {
	return CapabilitySet{
		Edit:        "edit_" + singular,
		Read:        "read_" + singular,
		Delete:      "delete_" + singular,
		EditMany:    "edit_" + plural,
		EditOthers:  "edit_others_" + plural,
		Publish:     "publish_" + plural,
		ReadPrivate: "read_private_" + plural,
	}
}

// Names returns the capability names in canonical order.
func (c CapabilitySet) Names() []string {
	return []string{c.Edit, c.Read, c.Delete, c.EditMany, c.EditOthers, c.Publish, c.ReadPrivate}
}

// DefaultGrants builds the default grant table for a capability set.
//
// Administrators and editors hold every capability. Authors hold everything
// except editing others' posts and reading private ones. Contributors may
// read, and edit their own drafts, but not delete or publish. Subscribers
// may only read.
func DefaultGrants(caps CapabilitySet) GrantTable {
	return GrantTable{
		RoleAdministrator: {
			caps.Edit:        true,
			caps.Read:        true,
			caps.Delete:      true,
			caps.EditMany:    true,
			caps.EditOthers:  true,
			caps.Publish:     true,
			caps.ReadPrivate: true,
		},
		RoleEditor: {
			caps.Edit:        true,
			caps.Read:        true,
			caps.Delete:      true,
			caps.EditMany:    true,
			caps.EditOthers:  true,
			caps.Publish:     true,
			caps.ReadPrivate: true,
		},
		RoleAuthor: {
			caps.Edit:        true,
			caps.Read:        true,
			caps.Delete:      true,
			caps.EditMany:    true,
			caps.EditOthers:  false,
			caps.Publish:     true,
			caps.ReadPrivate: false,
		},
		RoleContributor: {
			caps.Edit:        true,
			caps.Read:        true,
			caps.Delete:      false,
			caps.EditMany:    true,
			caps.EditOthers:  false,
			caps.Publish:     false,
			caps.ReadPrivate: false,
		},
		RoleSubscriber: {
			caps.Edit:        false,
			caps.Read:        true,
			caps.Delete:      false,
			caps.EditMany:    false,
			caps.EditOthers:  false,
			caps.Publish:     false,
			caps.ReadPrivate: false,
		},
	}
}
