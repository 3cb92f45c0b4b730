package ledger

// Store abstracts persistence for scenes and characters.
//
// The default implementation (XLSXStore) writes an Excel workbook so the
// ledger stays reviewable and hand-editable between runs. A MemoryStore is
// provided for unit tests.
//
// Upserts mutate the store's working set; nothing touches disk until Save.
// The Ledger calls Save after every mutation so a crash mid-pass loses at
// most the operation in flight.
type Store interface {
	// LoadScenes returns every scene row, in file order.
	LoadScenes() ([]Scene, error)

	// LoadCharacters returns every character row, in file order.
	LoadCharacters() ([]Character, error)

	// UpsertScene inserts or replaces the scene keyed by Scene.ID.
	UpsertScene(s Scene) error

	// UpsertCharacter inserts or replaces the character keyed by Character.ID.
	UpsertCharacter(c Character) error

	// ClearScenes drops all scene rows.
	ClearScenes() error

	// ClearCharacters drops all character rows.
	ClearCharacters() error

	// Save flushes the working set to durable storage.
	Save() error
}
