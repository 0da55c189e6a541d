package migrations

import "testing"

func TestMigrationsRegisteredInOrder(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(sorted))
	}
	if sorted[0].Name != "2024112201" || sorted[1].Name != "2024112202" {
		t.Fatalf("unexpected migration order: %s, %s", sorted[0].Name, sorted[1].Name)
	}
	if createQuizzesSQL == "" || createSubmissionsSQL == "" {
		t.Fatalf("embedded schema files are empty")
	}
}
