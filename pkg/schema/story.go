package schema

// StoryKind selects the artifact the generation pipeline produces.
type StoryKind string

const (
	KindStory       StoryKind = "story"
	KindDocumentary StoryKind = "documentary"
)

// StoryConfig is the free-form wizard input: a serializable value updated
// through wizard.Apply rather than ad hoc merges.
type StoryConfig struct {
	Kind         StoryKind `json:"kind,omitempty"`
	Topic        string    `json:"topic,omitempty"`
	Genre        string    `json:"genre,omitempty"`
	CharacterIDs []string  `json:"character_ids,omitempty"`
	AgeGroup     string    `json:"age_group,omitempty"`
	Chapters     int       `json:"chapters,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// Story is the generated artifact returned by the model backend.
type Story struct {
	Title    string    `json:"title"`
	Kind     StoryKind `json:"kind,omitempty"`
	Chapters []Chapter `json:"chapters"`
	Moral    string    `json:"moral,omitempty"`
}

type Chapter struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
	Scene   string `json:"scene,omitempty"` // short visual description, used for cover art
}

// Revision records one AI-assisted edit of a generated story.
type Revision struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Original  string `json:"original"`
	Result    string `json:"result"`
	CreatedAt string `json:"created_at"`
}
