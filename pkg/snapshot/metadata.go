package snapshot

// Metadata is the persisted header of a snapshot. Fields map 1:1 to the
// keys of the YAML block at the top of a .snap file and to the JSON shape
// used inside pending records.
type Metadata struct {
	// Source is the test source file, relative to the workspace root.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
	// AssertionLine is kept while a snapshot is pending and trimmed
	// before the final .snap file is written; it is display-only.
	AssertionLine int `yaml:"assertion_line,omitempty" json:"assertion_line,omitempty"`
	// Description is an optional free-text description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Expression is the source expression that produced the value.
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
	// Info is an optional structured blob, serialized as-is.
	Info any `yaml:"info,omitempty" json:"info,omitempty"`
	// InputFile references the fixture the assertion consumed, if any.
	InputFile string `yaml:"input_file,omitempty" json:"input_file,omitempty"`
	// Extension is set for binary snapshots only.
	Extension string `yaml:"extension,omitempty" json:"extension,omitempty"`
	// SnapshotKind is "binary" for binary snapshots and empty for text.
	SnapshotKind string `yaml:"snapshot_kind,omitempty" json:"snapshot_kind,omitempty"`
}

// IsBinary reports whether the metadata describes a binary snapshot.
func (m Metadata) IsBinary() bool { return m.SnapshotKind == "binary" }

// trimForPersistence drops the fields that are only used for display while
// a snapshot is under review.
func (m Metadata) trimForPersistence() Metadata {
	m.AssertionLine = 0
	return m
}

// equalPersisted compares two metadata values after trimming display-only
// fields. Structured info blobs are compared by their serialized form.
func (m Metadata) equalPersisted(other Metadata) bool {
	a := m.trimForPersistence()
	b := other.trimForPersistence()
	if a.Source != b.Source || a.Description != b.Description ||
		a.Expression != b.Expression || a.InputFile != b.InputFile ||
		a.Extension != b.Extension || a.SnapshotKind != b.SnapshotKind {
		return false
	}
	return infoFingerprint(a.Info) == infoFingerprint(b.Info)
}
