package words

import "testing"

func TestCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"latin only", "the quick brown fox", 4},
		{"extra whitespace", "  hello \t world \n", 2},
		{"cjk only", "世界你好", 4},
		{"mixed", "hello 世界 world", 4},
		{"cjk splits latin", "foo世bar", 3},
		{"hiragana", "これはテストです", 8},
		{"punctuation tokens", "one, two. three!", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.text); got != tt.want {
				t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
