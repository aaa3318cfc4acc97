package vango

import "testing"

func TestOwnerValueInheritance(t *testing.T) {
	parent := NewOwner(nil)
	child := NewOwner(parent)
	grandchild := NewOwner(child)

	parent.SetValue("inherited", "from parent")

	if grandchild.GetValue("inherited") != "from parent" {
		t.Errorf("grandchild should inherit from parent")
	}

	child.SetValue("inherited", "from child")
	if grandchild.GetValue("inherited") != "from child" {
		t.Errorf("grandchild should see child's value")
	}
	if parent.GetValue("inherited") != "from parent" {
		t.Errorf("parent value should be unchanged")
	}
}

func TestSetGetContext(t *testing.T) {
	owner := NewOwner(nil)

	WithOwner(owner, func() {
		SetContext("theme", "dark")
		if GetContext("theme") != "dark" {
			t.Errorf("expected 'dark', got %v", GetContext("theme"))
		}
		if GetContext("nonexistent") != nil {
			t.Error("expected nil for non-existent key")
		}
	})
}

func TestContextWithNoOwner(t *testing.T) {
	SetContext("key", "value")

	if GetContext("key") != nil {
		t.Error("expected nil when no owner")
	}
}
