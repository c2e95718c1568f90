package watcher

import (
	"testing"
)

func TestChatScope_InScope(t *testing.T) {
	tests := []struct {
		name     string
		entries  []string
		chatID   int64
		username string
		want     bool
	}{
		{
			name:     "empty scope monitors everything",
			entries:  nil,
			chatID:   12345,
			username: "whatever",
			want:     true,
		},
		{
			name:     "username entry matches",
			entries:  []string{"@mychannel"},
			chatID:   0,
			username: "mychannel",
			want:     true,
		},
		{
			name:     "username match is case-insensitive",
			entries:  []string{"@MyChannel"},
			chatID:   0,
			username: "mychannel",
			want:     true,
		},
		{
			name:     "username entry without at sign matches",
			entries:  []string{"mychannel"},
			chatID:   0,
			username: "mychannel",
			want:     true,
		},
		{
			name:     "unrelated chat not in scope",
			entries:  []string{"@mychannel", "123"},
			chatID:   999,
			username: "otherchannel",
			want:     false,
		},
		{
			name:     "exact numeric id matches",
			entries:  []string{"-1001234567890"},
			chatID:   -1001234567890,
			username: "",
			want:     true,
		},
		{
			name:     "marked entry matches bare chat id",
			entries:  []string{"-1001234567890"},
			chatID:   1234567890,
			username: "",
			want:     true,
		},
		{
			name:     "bare entry matches marked chat id",
			entries:  []string{"1234567890"},
			chatID:   -1001234567890,
			username: "",
			want:     true,
		},
		{
			name:     "different ids do not match",
			entries:  []string{"-1001234567890"},
			chatID:   -1009876543210,
			username: "",
			want:     false,
		},
		{
			name:     "whitespace entries are ignored",
			entries:  []string{"  ", ""},
			chatID:   42,
			username: "",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := NewChatScope(tt.entries)
			got := scope.InScope(tt.chatID, tt.username)
			if got != tt.want {
				t.Errorf("InScope(%d, %q) = %v, want %v", tt.chatID, tt.username, got, tt.want)
			}
		})
	}
}

func TestChatScope_Empty(t *testing.T) {
	if !NewChatScope(nil).Empty() {
		t.Error("nil entries should make an empty scope")
	}
	if !NewChatScope([]string{"", "  "}).Empty() {
		t.Error("whitespace-only entries should make an empty scope")
	}
	if NewChatScope([]string{"@chan"}).Empty() {
		t.Error("scope with entries should not be empty")
	}
}
