package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Section is one extracted stage answer.
type Section struct {
	Name string
	Text string
}

// Report is the ordered pipeline output plus the caller's correlation id.
// It serializes as a flat JSON object: one key per section, in stage order, then trace_id.
type Report struct {
	TraceID  string
	Sections []Section
}

// Section returns the text for the named stage.
func (r Report) Section(name string) (string, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s.Text, true
		}
	}
	return "", false
}

// MarshalJSON writes sections in order, followed by trace_id.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, s := range r.Sections {
		if err := writeMember(&buf, s.Name, s.Text); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeMember(&buf, "trace_id", r.TraceID); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a report, keeping the member order of the document.
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("report: expected object, got %v", tok)
	}

	out := Report{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("report: member %q: %w", key, err)
		}
		if key == "trace_id" {
			out.TraceID = val
			continue
		}
		out.Sections = append(out.Sections, Section{Name: key, Text: val})
	}
	*r = out
	return nil
}

func writeMember(buf *bytes.Buffer, key, val string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(val)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
