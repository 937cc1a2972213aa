package collation_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/schemasync/config"
	"github.com/stokaro/schemasync/migration/collation"
)

const usersCreate = "CREATE TABLE `users` (\n  `id` int NOT NULL\n) ENGINE=InnoDB DEFAULT CHARSET=utf8 COLLATE=utf8_general_ci;"

func TestRewriter_Rewrite(t *testing.T) {
	tests := []struct {
		name     string
		opts     *config.SyncOptions
		input    string
		expected string
	}{
		{
			name:     "no options passes through",
			opts:     nil,
			input:    usersCreate,
			expected: usersCreate,
		},
		{
			name:     "substitution",
			opts:     config.WithCollateSubstitutions(config.CollateSubstitution{From: "utf8_general_ci", To: "utf8mb4_unicode_ci"}),
			input:    ") COLLATE=utf8_general_ci;",
			expected: ") COLLATE=utf8mb4_unicode_ci;",
		},
		{
			name:     "omit collation",
			opts:     &config.SyncOptions{OmitCollation: true},
			input:    ") COLLATE=utf8_general_ci;",
			expected: ");",
		},
		{
			name:     "omit collation in full statement",
			opts:     &config.SyncOptions{OmitCollation: true},
			input:    usersCreate,
			expected: "CREATE TABLE `users` (\n  `id` int NOT NULL\n) ENGINE=InnoDB DEFAULT CHARSET=utf8;",
		},
		{
			name:     "case-insensitive match",
			opts:     config.WithCollateSubstitutions(config.CollateSubstitution{From: "UTF8_GENERAL_CI", To: "utf8mb4_bin"}),
			input:    ") collate=utf8_general_ci;",
			expected: ") COLLATE=utf8mb4_bin;",
		},
		{
			name: "first matching rule wins",
			opts: config.WithCollateSubstitutions(
				config.CollateSubstitution{From: "latin1_swedish_ci", To: "never"},
				config.CollateSubstitution{From: "utf8_general_ci", To: "first"},
				config.CollateSubstitution{From: "utf8_general", To: "second"},
			),
			input:    ") COLLATE=utf8_general_ci;",
			expected: ") COLLATE=first;",
		},
		{
			name: "substitution takes precedence over omit",
			opts: &config.SyncOptions{
				OmitCollation:        true,
				CollateSubstitutions: []config.CollateSubstitution{{From: "utf8_general_ci", To: "utf8mb4_unicode_ci"}},
			},
			input:    ") COLLATE=utf8_general_ci;",
			expected: ") COLLATE=utf8mb4_unicode_ci;",
		},
		{
			name: "omit applies when no rule matches",
			opts: &config.SyncOptions{
				OmitCollation:        true,
				CollateSubstitutions: []config.CollateSubstitution{{From: "latin1_swedish_ci", To: "utf8mb4_unicode_ci"}},
			},
			input:    ") ENGINE=InnoDB COLLATE=utf8mb4-custom;",
			expected: ") ENGINE=InnoDB;",
		},
		{
			name:     "column level collate is untouched",
			opts:     &config.SyncOptions{OmitCollation: true},
			input:    "`name` varchar(10) COLLATE utf8mb4_bin NOT NULL",
			expected: "`name` varchar(10) COLLATE utf8mb4_bin NOT NULL",
		},
		{
			name:     "mixed case collation name",
			opts:     config.WithCollateSubstitutions(config.CollateSubstitution{From: "utf8_general_ci", To: "utf8mb4_bin"}),
			input:    ") Collate=UTF8_General_CI;",
			expected: ") COLLATE=utf8mb4_bin;",
		},
		{
			name:     "rule matching the start of a name rewrites that part",
			opts:     config.WithCollateSubstitutions(config.CollateSubstitution{From: "utf8_general", To: "utf8mb4_general"}),
			input:    ") COLLATE=utf8_general_ci;",
			expected: ") COLLATE=utf8mb4_general_ci;",
		},
		{
			name:     "every occurrence is rewritten",
			opts:     config.WithCollateSubstitutions(config.CollateSubstitution{From: "latin1_swedish_ci", To: "utf8mb4_bin"}),
			input:    "PARTITION p0 COLLATE=latin1_swedish_ci) COLLATE=LATIN1_SWEDISH_CI;",
			expected: "PARTITION p0 COLLATE=utf8mb4_bin) COLLATE=utf8mb4_bin;",
		},
		{
			name:     "rule longer than the statement tail",
			opts:     config.WithCollateSubstitutions(config.CollateSubstitution{From: "utf8_general_ci_extra", To: "x"}),
			input:    ") COLLATE=utf8_general_ci",
			expected: ") COLLATE=utf8_general_ci",
		},
		{
			name:     "rule with regexp metacharacters is literal",
			opts:     config.WithCollateSubstitutions(config.CollateSubstitution{From: "utf8.general", To: "x"}),
			input:    ") COLLATE=utf8_general;",
			expected: ") COLLATE=utf8_general;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			rw, err := collation.New(tt.opts)
			c.Assert(err, qt.IsNil)
			c.Assert(rw.Rewrite(tt.input), qt.Equals, tt.expected)
		})
	}
}

func TestNew_InvalidRule(t *testing.T) {
	c := qt.New(t)

	_, err := collation.New(config.WithCollateSubstitutions(config.CollateSubstitution{From: "utf8_general_ci"}))
	c.Assert(err, qt.ErrorIs, config.ErrInvalidSubstitutionRule)
}
