package sequence

import (
	"fmt"
	"strings"
	"testing"
)

func newTestValidator() *Validator {
	return NewValidator(NewParser(ParserConfig{}), 100, 16)
}

func TestValidateSequence_Valid(t *testing.T) {
	v := newTestValidator()

	valid, problems := v.ValidateSequence([]string{
		"power_on",
		"wait 1.5",
		"if flag:night",
		"dim 20",
		"else",
		"dim 80",
		"endif",
	})
	if !valid {
		t.Errorf("ValidateSequence() invalid: %v", problems)
	}
}

func TestValidateSequence_Empty(t *testing.T) {
	v := newTestValidator()

	valid, problems := v.ValidateSequence(nil)
	if valid || len(problems) == 0 {
		t.Error("ValidateSequence(nil) accepted an empty sequence")
	}
}

func TestValidateSequence_LengthCeiling(t *testing.T) {
	v := NewValidator(NewParser(ParserConfig{}), 5, 16)

	commands := make([]string, 6)
	for i := range commands {
		commands[i] = "c"
	}

	valid, problems := v.ValidateSequence(commands)
	if valid {
		t.Error("ValidateSequence() accepted over-length sequence")
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "limit 5") {
		t.Errorf("problems = %v, want single length message", problems)
	}
}

func TestValidateSequence_BadCommandIndexIsOneBased(t *testing.T) {
	v := newTestValidator()

	valid, problems := v.ValidateSequence([]string{"ok", "wait abc", "ok"})
	if valid {
		t.Fatal("ValidateSequence() accepted invalid wait")
	}
	if len(problems) != 1 || !strings.HasPrefix(problems[0], "command 2:") {
		t.Errorf("problems = %v, want single message for command 2", problems)
	}
}

func TestValidateSequence_UnbalancedEndif(t *testing.T) {
	v := newTestValidator()

	valid, problems := v.ValidateSequence([]string{"c1", "endif"})
	if valid {
		t.Fatal("ValidateSequence() accepted stray endif")
	}
	want := "command 2: 'endif' without matching 'if'"
	if len(problems) != 1 || problems[0] != want {
		t.Errorf("problems = %v, want [%q]", problems, want)
	}
}

func TestValidateSequence_UnclosedIfReportsOrigin(t *testing.T) {
	v := newTestValidator()

	valid, problems := v.ValidateSequence([]string{"c1", "if flag:a", "c2"})
	if valid {
		t.Fatal("ValidateSequence() accepted unclosed if")
	}
	want := "unclosed conditional starting at index 2"
	if len(problems) != 1 || problems[0] != want {
		t.Errorf("problems = %v, want [%q]", problems, want)
	}
}

func TestValidateSequence_NestedUnclosed(t *testing.T) {
	v := newTestValidator()

	valid, problems := v.ValidateSequence([]string{
		"if flag:a",
		"if flag:b",
		"c1",
		"endif",
	})
	if valid {
		t.Fatal("ValidateSequence() accepted unclosed outer if")
	}
	want := "unclosed conditional starting at index 1"
	if len(problems) != 1 || problems[0] != want {
		t.Errorf("problems = %v, want [%q]", problems, want)
	}
}

func TestValidateSequence_CollectsAllProblems(t *testing.T) {
	v := newTestValidator()

	valid, problems := v.ValidateSequence([]string{
		"wait nope",
		"else",
		"if flag:a",
	})
	if valid {
		t.Fatal("ValidateSequence() accepted broken sequence")
	}
	if len(problems) != 3 {
		t.Errorf("problems = %v, want 3 entries", problems)
	}
}

func TestValidateCommand_Cached(t *testing.T) {
	v := newTestValidator()

	first := v.ValidateCommand("wait 1.0")
	second := v.ValidateCommand("wait 1.0")
	if first.Kind != second.Kind || first.Valid != second.Valid {
		t.Error("cached outcome differs from first classification")
	}

	stats := v.Stats()
	if stats.Hits < 1 {
		t.Errorf("cache hits = %d, want at least 1", stats.Hits)
	}
}

func TestValidateSequence_ManyCommands(t *testing.T) {
	v := NewValidator(NewParser(ParserConfig{}), 10000, 64)

	commands := make([]string, 0, 200)
	for i := 0; i < 100; i++ {
		commands = append(commands, fmt.Sprintf("cmd %d", i), "wait 0.1")
	}

	valid, problems := v.ValidateSequence(commands)
	if !valid {
		t.Errorf("ValidateSequence() invalid: %v", problems)
	}
}
