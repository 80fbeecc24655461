package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBookContext(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"picture book only", "子どもと一緒に読んだ絵本の話", true},
		{"picture book and whitepaper", "絵本市場の白書を読んだ", false},
		{"no positive", "Goでサーバーを書いた", false},
		{"english positive case-insensitive", "My favourite Picture Book list", true},
		{"english negative case-insensitive", "picture book Statistics 2024", false},
		{"framework noise", "えほんアプリを Laravel で作った", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBookContext(tt.text))
		})
	}
}

func TestCustomLexicon(t *testing.T) {
	c := Classifier{Positive: []string{"ehon"}, Negative: nil}
	assert.True(t, c.IsBookContext("EHON"))
	assert.False(t, c.IsBookContext("絵本"))
}

func TestIsBannedTitle(t *testing.T) {
	assert.True(t, IsBannedTitle("ログイン画面"))
	assert.True(t, IsBannedTitle("React入門"))
	assert.True(t, IsBannedTitle("Go"))
	assert.False(t, IsBannedTitle("Good Night Moon"), "ASCII words match on word boundaries only")
	assert.False(t, IsBannedTitle("ぐりとぐら"))
}

func TestFilterTitles(t *testing.T) {
	in := []string{"ぐりとぐら", "管理画面", "はらぺこあおむし"}
	assert.Equal(t, []string{"ぐりとぐら", "はらぺこあおむし"}, FilterTitles(in))
	assert.Equal(t, []string{"ぐりとぐら", "管理画面", "はらぺこあおむし"}, in, "input untouched")
}

func TestHasTitleMarker(t *testing.T) {
	assert.True(t, HasTitleMarker("はじめてのしかけ絵本"))
	assert.True(t, HasTitleMarker("どうぶつ図鑑"))
	assert.False(t, HasTitleMarker("はじめてのおつかい"))
}

func TestIsChildrensCategory(t *testing.T) {
	assert.True(t, IsChildrensCategory([]string{"Juvenile Fiction"}))
	assert.True(t, IsChildrensCategory([]string{"Fiction", "絵本"}))
	assert.False(t, IsChildrensCategory([]string{"Computers"}))
	assert.False(t, IsChildrensCategory(nil))
}
