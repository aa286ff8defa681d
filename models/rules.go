package models

// Content is one content match of a rule: the raw bytes plus the position
// constraints the rule placed on them.
type Content struct {
	Bytes  []byte `json:"bytes" yaml:"bytes"`
	Nocase bool   `json:"nocase,omitempty" yaml:"nocase,omitempty"`

	// Offset/Depth constrain the absolute match position in the payload.
	// Depth 0 means unbounded.
	Offset uint16 `json:"offset,omitempty" yaml:"offset,omitempty"`
	Depth  uint16 `json:"depth,omitempty" yaml:"depth,omitempty"`

	// Distance/Within are relative to the previous content match.
	Distance    int  `json:"distance,omitempty" yaml:"distance,omitempty"`
	HasDistance bool `json:"-" yaml:"-"`
	Within      int  `json:"within,omitempty" yaml:"within,omitempty"`
	HasWithin   bool `json:"-" yaml:"-"`
}

// Reference is a rule reference option (e.g. "url,example.com/advisory").
type Reference struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Rule is one detection rule as parsed from rule text.
type Rule struct {
	// Disabled marks rules that were commented out with "#alert".
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Action   string `json:"action" yaml:"action"`
	Protocol string `json:"protocol" yaml:"protocol"`

	// Source and Destination are the raw address expressions; the address
	// compiler consumes them verbatim.
	Source      string `json:"source" yaml:"source"`
	SourcePorts string `json:"source_ports" yaml:"source_ports"`
	Destination string `json:"destination" yaml:"destination"`
	DestPorts   string `json:"dest_ports" yaml:"dest_ports"`

	Msg        string      `json:"msg,omitempty" yaml:"msg,omitempty"`
	SID        uint32      `json:"sid" yaml:"sid"`
	Rev        int         `json:"rev,omitempty" yaml:"rev,omitempty"`
	Classtype  string      `json:"classtype,omitempty" yaml:"classtype,omitempty"`
	References []Reference `json:"references,omitempty" yaml:"references,omitempty"`
	NoAlert    bool        `json:"noalert,omitempty" yaml:"noalert,omitempty"`

	Contents []Content `json:"contents,omitempty" yaml:"contents,omitempty"`

	// Raw keeps the original rule line for diagnostics.
	Raw string `json:"-" yaml:"-"`
}

// LongestContent returns the index of the longest content of the rule, or -1
// when the rule has none. The longest content drives the scan phase.
func (r *Rule) LongestContent() int {
	best := -1
	for i := range r.Contents {
		if best < 0 || len(r.Contents[i].Bytes) > len(r.Contents[best].Bytes) {
			best = i
		}
	}
	return best
}
