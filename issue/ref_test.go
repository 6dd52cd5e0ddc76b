package issue

import (
	"testing"

	sferrors "github.com/randalmurphal/shipflow/errors"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Ref
		wantErr bool
	}{
		{"bare id", "42", Ref{LocalID: "42"}, false},
		{"simple github", "github:42", Ref{Source: SourceGitHub, LocalID: "42"}, false},
		{"simple gitlab uppercase", "GitLab:7", Ref{Source: SourceGitLab, LocalID: "7"}, false},
		{"extended", "gitlab:group/tool:17",
			Ref{Source: SourceGitLab, ProjectPath: "group/tool", LocalID: "17"}, false},
		{"extended nested namespace", "gitlab:group/sub/tool:3",
			Ref{Source: SourceGitLab, ProjectPath: "group/sub/tool", LocalID: "3"}, false},
		{"local", "local:abc123", Ref{Source: SourceLocal, LocalID: "abc123"}, false},
		{"prompt with colons", "prompt:fix the parser: handle CRLF",
			Ref{Source: SourcePrompt, LocalID: "fix the parser: handle CRLF"}, false},
		{"empty", "", Ref{}, true},
		{"unknown source", "bitbucket:42", Ref{}, true},
		{"missing id", "github:", Ref{}, true},
		{"extended missing project", "github::42", Ref{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRef(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				if !sferrors.IsResolution(err) {
					t.Errorf("ParseRef(%q) error = %v, want ResolutionError", tt.raw, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseRef(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRef_Extended(t *testing.T) {
	ext, err := ParseRef("github:org/repo:5")
	if err != nil {
		t.Fatal(err)
	}
	if !ext.Extended() {
		t.Error("extended reference should report Extended() = true")
	}

	simple, err := ParseRef("github:5")
	if err != nil {
		t.Fatal(err)
	}
	if simple.Extended() {
		t.Error("simple reference should report Extended() = false")
	}
}

func TestSource_Valid(t *testing.T) {
	for _, s := range []Source{SourceGitHub, SourceGitLab, SourceLocal, SourcePrompt} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Source("bitbucket").Valid() {
		t.Error("bitbucket should not be valid")
	}
}

func TestIssue_Labels(t *testing.T) {
	i := &Issue{ID: "1", Source: SourceGitHub}
	i.AddLabel("bug")
	i.AddLabel("agent")
	i.AddLabel("bug") // duplicate

	if len(i.Labels) != 2 {
		t.Fatalf("Labels = %v, want 2 entries", i.Labels)
	}
	if !i.HasLabel("agent") || !i.HasLabel("bug") {
		t.Errorf("missing expected labels: %v", i.Labels)
	}
}

func TestIssue_String(t *testing.T) {
	i := &Issue{ID: "42", Source: SourceGitHub, ProjectPath: "org/repo"}
	if got := i.String(); got != "github:org/repo#42" {
		t.Errorf("String() = %q", got)
	}
}
