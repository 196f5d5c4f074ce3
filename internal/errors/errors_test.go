package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "version error",
			code:    "E100",
			wantMsg: "Version could not be determined",
			wantCat: CategoryVersion,
		},
		{
			name:    "invalid distribution type",
			code:    "E110",
			wantMsg: "Invalid distribution type",
			wantCat: CategoryBuild,
		},
		{
			name:    "config read error",
			code:    "E120",
			wantMsg: "Could not read config file",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "addon.json")

	if err.Message != `file "addon.json" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
	if err.Code != "" {
		t.Errorf("Code = %q, want empty", err.Code)
	}
}

func TestError_String(t *testing.T) {
	cause := fmt.Errorf("exit status 128")
	err := New("E112").WithDetail("git archive v9.9.9").Wrap(cause)

	got := err.Error()
	want := "E112: Snapshot of the source tree failed: git archive v9.9.9: exit status 128"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("E116").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E116") != nil {
		t.Error("FromError(nil) should be nil")
	}

	original := New("E110")
	wrapped := fmt.Errorf("context: %w", original)
	if got := FromError(wrapped, "E116"); got != original {
		t.Errorf("FromError should return the existing *Error, got %v", got)
	}

	plain := stderrors.New("plain")
	got := FromError(plain, "E116")
	if got.Code != "E116" || got.Wrapped != plain {
		t.Errorf("FromError(plain) = %+v", got)
	}
}

func TestIsCategory(t *testing.T) {
	inner := New("E112").Wrap(stderrors.New("git failed"))
	outer := New("E141").Wrap(inner)

	if !IsCategory(outer, CategoryCLI) {
		t.Error("outer should be a CLI error")
	}
	if !IsCategory(outer, CategoryBuild) {
		t.Error("outer should carry the wrapped build error")
	}
	if IsCategory(outer, CategoryConfig) {
		t.Error("outer is not a config error")
	}
	if IsCategory(stderrors.New("plain"), CategoryBuild) {
		t.Error("plain errors have no category")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New("E141").Wrap(New("E100")))

	if !HasCode(err, "E100") {
		t.Error("HasCode should find E100 in the chain")
	}
	if HasCode(err, "E110") {
		t.Error("HasCode should not find E110")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E110").WithDetail(`"bogus" is not one of local, ankiweb`)
	out := err.Format()

	for _, want := range []string{
		"ERROR E110: Invalid distribution type",
		`"bogus" is not one of local, ankiweb`,
		"Hint: Use one of: local, ankiweb, all",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Print(&buf, New("E140"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected message and hint lines, got %q", buf.String())
	}
	if lines[0] != "Error: E140: Could not find 'src' or 'addon.json'" {
		t.Errorf("line 0 = %q", lines[0])
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, line := range lines {
		if len(line) > 20 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should wrap to nil")
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("registry is empty")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("codes not sorted: %q before %q", codes[i-1], codes[i])
		}
	}
	if _, ok := GetTemplate("E100"); !ok {
		t.Error("E100 should be registered")
	}
}
