package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tavere/legendgame-go/internal/client"
	"github.com/tavere/legendgame-go/internal/model"
)

// OnlineResult is the online-player list shape for output
type OnlineResult struct {
	Players []model.OnlinePlayer `json:"players"`
	Total   int                  `json:"total"`
}

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case client.AuthResult:
		o.printAuthResult(v)
	case client.RankingsResult:
		o.printRankings(v)
	case OnlineResult:
		o.printOnline(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printAuthResult(v client.AuthResult) {
	fmt.Printf("Player: %s (%s)\n", v.Player.Username, v.Player.ID)
}

func (o *Output) printRankings(v client.RankingsResult) {
	if len(v.Rankings) == 0 {
		fmt.Println("No rankings yet")
		return
	}
	for i, entry := range v.Rankings {
		marker := " "
		if entry.IsOnline {
			marker = "*"
		}
		fmt.Printf("%3d. %s %-20s lvl %-3d gold %-8d kills %-5d quests %-5d dmg %d\n",
			i+1, marker, entry.Username, entry.Level, entry.Gold,
			entry.MonstersKilled, entry.QuestsCompleted, entry.HighestDamage)
	}
}

func (o *Output) printOnline(v OnlineResult) {
	if len(v.Players) == 0 {
		fmt.Println("No players online")
		return
	}
	for _, p := range v.Players {
		fmt.Printf("%-20s lvl %-3d %s\n", p.Username, p.Level, p.Class)
	}
	fmt.Printf("%d online\n", v.Total)
}
