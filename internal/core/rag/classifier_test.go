package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		question string
		want     QueryKind
	}{
		{"What is the status of lead #123?", Lead},
		{"LEAD 456", Lead},
		{"Check my application 789", Lead},
		{"enquiry number 101 please", Lead},
		{"What is the status of my lead?", General},
		{"What is Amity University?", General},
		{"How many hostels are there? 3?", General},
		{"Student ID 4411 details", Lead},
		// vocabulary term plus an unrelated number still routes to the lead lookup
		{"What are the admission fees for 2025?", Lead},
	}
	for _, tc := range cases {
		t.Run(tc.question, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.question))
		})
	}
}

func TestQueryKindString(t *testing.T) {
	assert.Equal(t, "lead", Lead.String())
	assert.Equal(t, "general", General.String())
}
