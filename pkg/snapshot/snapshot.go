package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is one named, persisted expected value: identity (module and
// optional name), metadata, and a body.
type Snapshot struct {
	ModuleName string
	Name       string
	Metadata   Metadata
	Contents   Contents
}

// New assembles a snapshot from its components.
func New(moduleName, name string, md Metadata, contents Contents) *Snapshot {
	return &Snapshot{ModuleName: moduleName, Name: name, Metadata: md, Contents: contents}
}

// FromFile loads a snapshot from a .snap (or .snap.new) file. Binary
// snapshots read their payload from the sibling file named by the
// extension in the metadata block.
func FromFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	md, body, err := parseSnapshotFile(string(data), path)
	if err != nil {
		return nil, err
	}

	var contents Contents
	if md.IsBinary() {
		payload, err := os.ReadFile(BinaryPath(path, md.Extension))
		if err != nil {
			return nil, fmt.Errorf("read binary payload: %w", err)
		}
		contents = NewBinary(payload, md.Extension)
	} else {
		contents = NewText(body, KindFile)
	}

	name, module := namesOfPath(path)
	return New(module, name, md, contents), nil
}

// parseSnapshotFile splits a snapshot file into metadata and body. New
// files carry a YAML block between "---" fences and a closing "---" line;
// old files with a bare "key: value" header are still read, with a note to
// stderr so they eventually get rewritten.
func parseSnapshotFile(text, path string) (Metadata, string, error) {
	var md Metadata
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	bodyStart := 0
	if len(lines) > 0 && strings.TrimRight(lines[0], " \t") == "---" {
		metaEnd := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimRight(lines[i], " \t") == "---" {
				metaEnd = i
				break
			}
		}
		if metaEnd < 0 {
			return md, "", fmt.Errorf("snapshot %s: unterminated metadata block", path)
		}
		block := strings.Join(lines[1:metaEnd], "\n")
		if err := yaml.Unmarshal([]byte(block), &md); err != nil {
			return md, "", fmt.Errorf("snapshot %s: parse metadata: %w", path, err)
		}
		bodyStart = metaEnd + 1
	} else {
		// Legacy header: bare key/value lines terminated by a blank line.
		for bodyStart < len(lines) && strings.TrimSpace(lines[bodyStart]) != "" {
			key, value, ok := strings.Cut(lines[bodyStart], ":")
			if ok {
				switch strings.ToLower(strings.TrimSpace(key)) {
				case "source":
					md.Source = strings.TrimSpace(value)
				case "expression":
					md.Expression = strings.TrimSpace(value)
				}
			}
			bodyStart++
		}
		if bodyStart < len(lines) {
			bodyStart++ // skip the blank separator
		}
		fmt.Fprintf(os.Stderr,
			"warning: snapshot %s uses a legacy format; accept it once with force-update to rewrite it\n", path)
	}

	body := lines[bodyStart:]
	// Writers terminate the body with a closing "---" line; drop it. The
	// final element of the split is the empty string after the trailing
	// newline.
	if n := len(body); n > 0 && body[n-1] == "" {
		body = body[:n-1]
	}
	if n := len(body); n > 0 && body[n-1] == "---" {
		body = body[:n-1]
	}
	return md, strings.Join(body, "\n"), nil
}

// serialize renders the file representation with the given metadata.
func (s *Snapshot) serialize(md Metadata) ([]byte, error) {
	block, err := yaml.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(block)
	b.WriteString("---\n")
	if !s.Contents.IsBinary() {
		b.WriteString(s.Contents.String())
		b.WriteString("\n---\n")
	}
	return []byte(b.String()), nil
}

func (s *Snapshot) saveWithMetadata(path string, md Metadata) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	data, err := s.serialize(md)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if s.Contents.IsBinary() {
		bp := BinaryPath(path, s.Contents.Extension())
		if err := WriteFileAtomic(bp, s.Contents.Binary()); err != nil {
			return fmt.Errorf("write binary payload %s: %w", bp, err)
		}
	}
	return nil
}

// Save writes the snapshot as the authoritative .snap file, trimming
// display-only metadata.
func (s *Snapshot) Save(path string) error {
	return s.saveWithMetadata(path, s.Metadata.trimForPersistence())
}

// SaveNew writes a pending sibling next to the given .snap path, keeping
// the full metadata for review display. It returns the path written.
func (s *Snapshot) SaveNew(path string) (string, error) {
	newPath := path + ".new"
	if err := s.saveWithMetadata(newPath, s.Metadata); err != nil {
		return "", err
	}
	return newPath, nil
}

// Matches reports whether the contents match the other snapshot's. For
// binary snapshots the extension participates via Contents.Equal.
func (s *Snapshot) Matches(other *Snapshot) bool {
	return s.Contents.Equal(other.Contents)
}

// MatchesFully additionally requires the persisted metadata to agree.
// Inline snapshots persist no metadata, so for them this degrades to a
// latest-rules content match.
func (s *Snapshot) MatchesFully(other *Snapshot) bool {
	if s.Contents.IsBinary() || other.Contents.IsBinary() {
		return s.Matches(other)
	}
	contentsMatch := s.Contents.MatchesLatest(other.Contents)
	if s.Contents.TextKind() == KindInline {
		return contentsMatch
	}
	return contentsMatch && s.Metadata.equalPersisted(other.Metadata)
}

// BinaryPath returns the sibling file carrying a binary snapshot's
// payload: <snapshot-file>.<extension>.
func BinaryPath(snapshotPath, extension string) string {
	return snapshotPath + "." + extension
}

// namesOfPath extracts the snapshot and module names from a snapshot file
// path: the stem is <module>__<name>, with the module part optional.
func namesOfPath(path string) (name, module string) {
	stem := filepath.Base(path)
	stem = strings.TrimSuffix(stem, ".new")
	stem = strings.TrimSuffix(stem, ".snap")
	if idx := strings.LastIndex(stem, "__"); idx >= 0 {
		return stem[idx+2:], stem[:idx]
	}
	return stem, ""
}

// infoFingerprint gives a comparable form for the free-shaped info blob.
func infoFingerprint(info any) string {
	if info == nil {
		return ""
	}
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Sprintf("!err:%v", err)
	}
	return string(data)
}

// snapshotJSON is the wire shape of a snapshot inside a pending record.
type snapshotJSON struct {
	ModuleName   string   `json:"module_name"`
	SnapshotName string   `json:"snapshot_name,omitempty"`
	Metadata     Metadata `json:"metadata"`
	Snapshot     string   `json:"snapshot"`
}

// MarshalJSON encodes the snapshot for a pending record. Only text bodies
// are representable; inline snapshots are always text.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		ModuleName:   s.ModuleName,
		SnapshotName: s.Name,
		Metadata:     s.Metadata,
		Snapshot:     s.Contents.Raw(),
	})
}

// UnmarshalJSON decodes a snapshot from a pending record. Bodies read this
// way are inline-kind text.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ModuleName = raw.ModuleName
	s.Name = raw.SnapshotName
	s.Metadata = raw.Metadata
	s.Contents = NewText(raw.Snapshot, KindInline)
	return nil
}
