package main

import "testing"

func TestValidateCorrectionValue(t *testing.T) {
	cases := []struct {
		field, value string
		wantErr      bool
	}{
		// Category is an open vocabulary; anything non-empty goes.
		{FieldCategory, "Brand New Project", false},
		{FieldTaskForMe, "Yes", false},
		{FieldTaskForMe, "No", false},
		{FieldTaskForMe, "Unsure", false},
		{FieldTaskForMe, "maybe later", true},
		{FieldTaskForMe, "yes", true},
		{FieldPriority, "High", false},
		{FieldPriority, "Urgent", false},
		{FieldPriority, "Critical", true},
	}
	for _, c := range cases {
		err := validateCorrectionValue(c.field, c.value)
		if (err != nil) != c.wantErr {
			t.Errorf("validateCorrectionValue(%s, %q) = %v, wantErr %v", c.field, c.value, err, c.wantErr)
		}
	}
}

func TestIsTaskForMeValue(t *testing.T) {
	for _, v := range []string{"Yes", "No", "Unsure"} {
		if !isTaskForMeValue(v) {
			t.Errorf("isTaskForMeValue(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"", "yes", "Maybe", "YES"} {
		if isTaskForMeValue(v) {
			t.Errorf("isTaskForMeValue(%q) = true, want false", v)
		}
	}
}
