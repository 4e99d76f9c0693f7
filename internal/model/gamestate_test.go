package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSnapshot(t *testing.T) {
	valid := []GameState{
		GameState(`{}`),
		GameState(`{"player":{"level":3}}`),
		GameState("  \n\t {\"a\":1}"),
		InitialGameState(),
	}
	for _, state := range valid {
		assert.NoError(t, ValidateSnapshot(state), string(state))
	}

	invalid := []GameState{
		nil,
		GameState(``),
		GameState(`   `),
		GameState(`[]`),
		GameState(`"a string"`),
		GameState(`42`),
		GameState(`{"broken":`),
	}
	for _, state := range invalid {
		assert.ErrorIs(t, ValidateSnapshot(state), ErrInvalidSnapshot, string(state))
	}
}

func TestSummarizeState(t *testing.T) {
	summary := SummarizeState(GameState(`{"player":{"class":"mage","level":12,"exp":340,"gold":900}}`))
	assert.Equal(t, StateSummary{Level: 12, Exp: 340, Gold: 900, Class: "mage"}, summary)
}

func TestSummarizeStateDefaultsMissingFields(t *testing.T) {
	summary := SummarizeState(GameState(`{"player":{"gold":50}}`))
	assert.Equal(t, StateSummary{Level: 1, Gold: 50, Class: "warrior"}, summary)
}

func TestSummarizeStateMalformedBlob(t *testing.T) {
	summary := SummarizeState(GameState(`not json`))
	assert.Equal(t, StateSummary{Level: 1, Class: "warrior"}, summary)
}

func TestSummarizeInitialState(t *testing.T) {
	summary := SummarizeState(InitialGameState())
	assert.Equal(t, StateSummary{Level: 1, Exp: 0, Gold: 100, Class: "warrior"}, summary)
}
