package schema

// Note is a full row of the notes table. Nullable columns are pointers.
type Note struct {
	RemoteUUID    string  `json:"remote_uuid"`
	LocalUUID     string  `json:"local_uuid"`
	Name          string  `json:"name"`
	Metadata      *string `json:"metadata"`
	Text          *string `json:"text"`
	RemoteContent *string `json:"remote_content"`
	RemoteDigest  *string `json:"remote_digest"`
}

// NoteBasic is the listing projection of a note.
type NoteBasic struct {
	RemoteUUID string `json:"remote_uuid"`
	LocalUUID  string `json:"local_uuid"`
	Name       string `json:"name"`
}

// NoteWithTimestamp is a listing entry carrying the raw updated_at column.
type NoteWithTimestamp struct {
	RemoteUUID string `json:"remote_uuid"`
	LocalUUID  string `json:"local_uuid"`
	Name       string `json:"name"`
	UpdatedAt  string `json:"updated_at"`
}

// NoteSearchResult is one full-text search hit. Snippet marks matched terms
// with square brackets.
type NoteSearchResult struct {
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// NoteReference is one end of a reference edge. Name is nil when the target
// note is not present in the cache; the edge is still reported.
type NoteReference struct {
	UUID string  `json:"uuid"`
	Name *string `json:"name"`
}

// NoteReferences holds the in-edges and out-edges of one note. Both lists are
// non-nil so they encode as [] rather than null.
type NoteReferences struct {
	ReferencedBy []NoteReference `json:"referenced_by"`
	References   []NoteReference `json:"references"`
}
