package certs_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/certdash/certs"
	"github.com/warp/certdash/generic"
)

func TestParseLearnerCSV_Valid(t *testing.T) {
	doc := "Name, Email, Organization, OrganizationId\n" +
		"Ada Lovelace, ada@acme-corp.com, Acme Corp, org-1\n" +
		"Alan Turing,alan@techcorp.com,TechCorp Inc,org-2\n"

	drafts, err := certs.ParseLearnerCSV(strings.NewReader(doc))

	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, certs.LearnerDraft{
		Name:           "Ada Lovelace",
		Email:          "ada@acme-corp.com",
		Organization:   "Acme Corp",
		OrganizationID: "org-1",
		Status:         certs.LearnerActive,
	}, drafts[0])
	assert.Equal(t, "org-2", drafts[1].OrganizationID)
}

func TestParseLearnerCSV_ExplicitStatusAndExtraColumns(t *testing.T) {
	doc := "email,name,status,notes\nbob@example.com,Bob,suspended,late payer\n"

	drafts, err := certs.ParseLearnerCSV(strings.NewReader(doc))

	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, certs.LearnerSuspended, drafts[0].Status)
	assert.Empty(t, drafts[0].Organization)
}

func TestParseLearnerCSV_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty document", "", "empty CSV document"},
		{"missing email column", "name\nBob\n", "missing column email"},
		{"header only", "name,email\n", "no learner rows"},
		{"bad email", "name,email\nBob,not-an-email\n", "line 2"},
		{"missing name", "name,email\nBob,bob@example.com\n,eve@example.com\n", "line 3"},
		{"unknown status", "name,email,status\nBob,bob@example.com,retired\n", "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := certs.ParseLearnerCSV(strings.NewReader(tt.doc))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, generic.IsClientError(err), "CSV problems are client errors")
		})
	}
}
