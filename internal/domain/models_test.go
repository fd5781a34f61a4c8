package domain

import "testing"

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Message{}.TableName():       "messages",
		GroupMessage{}.TableName():  "groups",
		UrgentMessage{}.TableName(): "urgent",
		User{}.TableName():          "users",
		Stat{}.TableName():          "stats",
		KV{}.TableName():            "storage",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("table name %q, want %q", got, want)
		}
	}
}
