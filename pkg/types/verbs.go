package types

// Verb names a symbolic operation on a collection. Asynchronous verbs are
// carried through START, SUCCESS, and ERROR; synchronous verbs have no status.
type Verb string

// Standard verbs.
const (
	VerbCancelDelete   Verb = "CANCEL_DELETE"   // Cancels a two-phase delete that was started
	VerbCancelEdit     Verb = "CANCEL_EDIT"     // Cancels an edit and reverts the record
	VerbCancelNew      Verb = "CANCEL_NEW"      // Discards a new, unsaved record
	VerbCreateNew      Verb = "CREATE_NEW"      // Creates a new placeholder record for editing
	VerbDelete         Verb = "DELETE"          // Commits a delete against the server
	VerbEdit           Verb = "EDIT"            // Changes one field of a record
	VerbHydrate        Verb = "HYDRATE"         // Reloads state during a client refresh
	VerbLogin          Verb = "LOGIN"           // Authenticates and loads session state
	VerbLogout         Verb = "LOGOUT"          // Clears session state
	VerbRead           Verb = "READ"            // Reads one record
	VerbSaveNew        Verb = "SAVE_NEW"        // Creates a record on the server
	VerbSaveUpdate     Verb = "SAVE_UPDATE"     // Updates an existing record on the server
	VerbSearch         Verb = "SEARCH"          // Searches the collection
	VerbStartDelete    Verb = "START_DELETE"    // Starts a two-phase delete
	VerbStartEdit      Verb = "START_EDIT"      // Starts an edit, remembering the original
	VerbToggleSelected Verb = "TOGGLE_SELECTED" // Adds or removes a record from the selection
)

// StandardVerbs lists every standard verb for enumeration.
var StandardVerbs = []Verb{
	VerbCancelDelete,
	VerbCancelEdit,
	VerbCancelNew,
	VerbCreateNew,
	VerbDelete,
	VerbEdit,
	VerbHydrate,
	VerbLogin,
	VerbLogout,
	VerbRead,
	VerbSaveNew,
	VerbSaveUpdate,
	VerbSearch,
	VerbStartDelete,
	VerbStartEdit,
	VerbToggleSelected,
}

// crossCutting verbs apply to every collection on success, not only to the
// collection owning the action's record.
var crossCutting = map[Verb]bool{
	VerbLogin:   true,
	VerbLogout:  true,
	VerbHydrate: true,
}

var async = map[Verb]bool{
	VerbRead:       true,
	VerbSaveNew:    true,
	VerbSaveUpdate: true,
	VerbDelete:     true,
	VerbSearch:     true,
	VerbLogin:      true,
	VerbLogout:     true,
	VerbHydrate:    true,
}

// IsCrossCutting reports whether the verb is a session-wide verb (login,
// logout, hydrate).
func (v Verb) IsCrossCutting() bool {
	return crossCutting[v]
}

// IsAsync reports whether the verb is carried out by a network call.
func (v Verb) IsAsync() bool {
	return async[v]
}

func (v Verb) String() string {
	return string(v)
}
