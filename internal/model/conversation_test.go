package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurnValidate(t *testing.T) {
	cases := []struct {
		name string
		turn Turn
		ok   bool
	}{
		{"user turn", NewTurn(RoleUser, "oi"), true},
		{"model turn", NewTurn(RoleModel, "olá"), true},
		{"assistant role rejected", Turn{Role: "assistant", Parts: []Part{{Text: "x"}}}, false},
		{"empty role rejected", Turn{Parts: []Part{{Text: "x"}}}, false},
		{"no parts rejected", Turn{Role: RoleUser}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.turn.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTurnText(t *testing.T) {
	turn := Turn{Role: RoleUser, Parts: []Part{{Text: "fotos"}, {Text: "síntese"}}}
	assert.Equal(t, "fotossíntese", turn.Text())
	assert.Equal(t, "a", NewTurn(RoleModel, "a").Text())
}
