package airtable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOwnerFormula(t *testing.T) {
	assert.Equal(t, "{Owner Telegram ID} = '42'", ownerFormula("42"))
}

func TestQuoteEscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it\'s'`, quote("it's"))
}

func TestSinceUsesUTCTimestamp(t *testing.T) {
	at := time.Date(2026, 8, 22, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "{Last Updated} >= '2026-08-22T10:30:00Z'", since(FieldLastUpdated, at))
}

func TestSearchFormula(t *testing.T) {
	cases := []struct {
		name string
		crit SearchCriteria
		want string
	}{
		{
			name: "empty",
			crit: SearchCriteria{},
			want: "",
		},
		{
			name: "status only",
			crit: SearchCriteria{Status: "MVP"},
			want: "{Status} = 'MVP'",
		},
		{
			name: "stack only",
			crit: SearchCriteria{Stack: "Go"},
			want: "FIND('go', LOWER({Stack}))",
		},
		{
			name: "keyword spans name tagline and problem",
			crit: SearchCriteria{Keyword: "Chat"},
			want: "OR(FIND('chat', LOWER({Project Name})), FIND('chat', LOWER({One-liner})), FIND('chat', LOWER({Problem Statement})))",
		},
		{
			name: "all criteria are anded",
			crit: SearchCriteria{Keyword: "bot", Stack: "go", Status: "Launched"},
			want: "AND(OR(FIND('bot', LOWER({Project Name})), FIND('bot', LOWER({One-liner})), FIND('bot', LOWER({Problem Statement}))), FIND('go', LOWER({Stack})), {Status} = 'Launched')",
		},
		{
			name: "whitespace criteria are skipped",
			crit: SearchCriteria{Keyword: "  ", Status: "Idea"},
			want: "{Status} = 'Idea'",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, searchFormula(tc.crit))
		})
	}
}

func TestLinkedToFormula(t *testing.T) {
	assert.Equal(t, "FIND('recABC', ARRAYJOIN({Project}))", linkedToFormula("recABC"))
}
