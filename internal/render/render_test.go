package render

import "testing"

func TestRenderReplacesAllPlaceholders(t *testing.T) {
	row := map[string]string{
		"name":    "Alice",
		"company": "Acme",
	}

	got := Render("Hi {{name}}, welcome to {{company}}! Regards, {{company}} team.", row)
	want := "Hi Alice, welcome to Acme! Regards, Acme team."
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderLeavesUnmatchedPlaceholders(t *testing.T) {
	row := map[string]string{"name": "Bob"}

	got := Render("Hi {{name}}, your code is {{code}}", row)
	want := "Hi Bob, your code is {{code}}"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderIsCaseSensitive(t *testing.T) {
	row := map[string]string{"Name": "Carol"}

	got := Render("Hi {{name}}", row)
	if got != "Hi {{name}}" {
		t.Errorf("Render() = %q, want placeholder left verbatim", got)
	}
}

func TestRenderEmptyValue(t *testing.T) {
	row := map[string]string{"name": ""}

	got := Render("Hi {{name}}!", row)
	if got != "Hi !" {
		t.Errorf("Render() = %q, want %q", got, "Hi !")
	}
}

func TestRenderNoPlaceholders(t *testing.T) {
	row := map[string]string{"name": "Dave"}

	got := Render("plain text", row)
	if got != "plain text" {
		t.Errorf("Render() = %q, want input unchanged", got)
	}
}

func TestRenderDoesNotMutateInputs(t *testing.T) {
	row := map[string]string{"name": "Eve"}
	template := "Hi {{name}}"

	first := Render(template, row)
	second := Render(template, row)
	if first != second {
		t.Errorf("Render() not deterministic: %q vs %q", first, second)
	}
	if template != "Hi {{name}}" {
		t.Errorf("template mutated: %q", template)
	}
	if row["name"] != "Eve" {
		t.Errorf("row mutated: %v", row)
	}
}
