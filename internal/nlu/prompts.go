package nlu

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/domain"
)

// buildSystemPrompt documents the JSON schema the model is asked to return.
// The schema is not enforced; Normalize tolerates anything.
func buildSystemPrompt(today civil.Date) string {
	yesterday := today.AddDays(-1)

	processes := make([]string, 0, len(domain.Processes))
	for _, p := range domain.Processes {
		processes = append(processes, fmt.Sprintf("%q", p.Label()))
	}
	categories := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		categories = append(categories, fmt.Sprintf("%q", c.Label()))
	}
	movements := make([]string, 0, len(domain.MovementKinds))
	for _, k := range domain.MovementKinds {
		movements = append(movements, fmt.Sprintf("%q", string(k)))
	}

	var b strings.Builder
	b.WriteString("You are the bookkeeping assistant of a small livestock farm.\n")
	b.WriteString("Users write in Arabic. Return ONLY one valid JSON object, no markdown, no prose.\n\n")

	b.WriteString("Schema:\n{\n")
	b.WriteString("  \"intent\": \"transaction\" | \"livestock_change\" | \"livestock_baseline\" | \"query\" | \"other\",\n")
	b.WriteString("  \"should_save\": true | false,\n")
	b.WriteString("  \"date\": \"YYYY-MM-DD\",\n")
	b.WriteString("  \"process\": " + strings.Join(processes, " | ") + ",\n")
	b.WriteString("  \"type\": " + strings.Join(categories, " | ") + ",\n")
	b.WriteString("  \"item\": string,\n")
	b.WriteString("  \"amount\": number,\n")
	b.WriteString("  \"note\": string,\n")
	b.WriteString("  \"livestock\": [{\"animal\": string, \"breed\": string, \"count\": integer, \"movement\": " + strings.Join(movements, " | ") + "}],\n")
	b.WriteString("  \"query\": \"balance\" | \"today\" | \"week\" | \"month\"\n")
	b.WriteString("}\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Money spent or received -> intent=transaction, should_save=true.\n")
	b.WriteString("- Animals bought, sold, born, dead or lost -> intent=livestock_change with one livestock entry per animal/breed.\n")
	b.WriteString("- A full headcount of the herd -> intent=livestock_baseline, every entry movement=\"absolute\".\n")
	b.WriteString("- Questions about balance or totals -> intent=query.\n")
	b.WriteString("- Anything else -> intent=other, should_save=false.\n")
	b.WriteString("- \"amount\" is always a positive number without currency.\n")
	fmt.Fprintf(&b, "- \"امس\" or \"أمس\" -> %s. \"قبل امس\" -> %s.\n", yesterday, today.AddDays(-2))
	fmt.Fprintf(&b, "- Otherwise -> %s.\n", today)

	return b.String()
}
