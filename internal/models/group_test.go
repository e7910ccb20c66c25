package models

import "testing"

func TestGroupHasMember(t *testing.T) {
	g := Group{ID: 1, Members: []int{3, 7}}
	if !g.HasMember(7) {
		t.Fatalf("expected 7 to be a member")
	}
	if g.HasMember(4) {
		t.Fatalf("did not expect 4 to be a member")
	}
	if (Group{}).HasMember(0) {
		t.Fatalf("empty group has no members")
	}
}
