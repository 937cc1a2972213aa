// Package config provides configuration for schemasync runs.
//
// A configuration describes the two databases taking part in a sync (the source,
// whose structure is authoritative, and the destination, which is brought in line
// with it) plus the SyncOptions that control how columns are compared and how
// CREATE TABLE statements are rewritten. Configurations are usually loaded from a
// JSON file with Load, but can be built programmatically when schemasync is used
// as a library.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultPort is the MySQL port used when a connection does not specify one.
const DefaultPort = 3306

var (
	// ErrInvalidConfig is returned when required configuration fields are missing or malformed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidSubstitutionRule is returned when a collate substitution rule is
	// missing its "from" or "to" value.
	ErrInvalidSubstitutionRule = errors.New("invalid 'collate' substitution set, either 'from' or 'to' key is missing")
)

// Config is the complete configuration of one sync run.
type Config struct {
	// Source is the database whose table structure is copied.
	Source ConnectionConfig `mapstructure:"source" json:"source"`

	// Dest is the database that receives the DDL changes.
	Dest ConnectionConfig `mapstructure:"dest" json:"dest"`

	SyncOptions `mapstructure:",squash"`
}

// ConnectionConfig holds the parameters needed to reach one MySQL database.
// User and Password may be left empty and prompted for by the CLI.
type ConnectionConfig struct {
	Host     string `mapstructure:"host" json:"host" validate:"required"`
	Port     int    `mapstructure:"port" json:"port" validate:"omitempty,min=1,max=65535"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	Database string `mapstructure:"database" json:"database" validate:"required"`
}

// String renders the connection as user@host/database, never including the password.
func (c ConnectionConfig) String() string {
	return fmt.Sprintf("%s@%s/%s", c.User, c.Host, c.Database)
}

// SyncOptions contains the options that control schema comparison and DDL generation.
type SyncOptions struct {
	// IgnoreColumnWidths strips parenthesized type specifiers such as (255) or (10,2)
	// before columns are compared and rendered.
	IgnoreColumnWidths bool `mapstructure:"ignoreColumnWidths" json:"ignoreColumnWidths"`

	// OmitCollation removes COLLATE=<name> table options from CREATE TABLE
	// statements when no substitution rule matched.
	OmitCollation bool `mapstructure:"omitCollate" json:"omitCollate"`

	// CollateSubstitutions is evaluated in order; the first rule whose
	// COLLATE=<from> occurs in a CREATE TABLE statement is applied and the rest are skipped.
	CollateSubstitutions []CollateSubstitution `mapstructure:"collateSubstitutions" json:"collateSubstitutions" validate:"dive"`

	// ExplicitDefaultsOnly renders a DEFAULT clause only when the column reports
	// an explicit default value. By default nullable columns without a default
	// are rendered with DEFAULT NULL.
	ExplicitDefaultsOnly bool `mapstructure:"explicitDefaultsOnly" json:"explicitDefaultsOnly"`

	// ValidateStatements parses every generated statement with a MySQL parser
	// and logs the ones that fail to parse.
	ValidateStatements bool `mapstructure:"validateStatements" json:"validateStatements"`
}

// CollateSubstitution replaces COLLATE=From with COLLATE=To.
type CollateSubstitution struct {
	From string `mapstructure:"from" json:"from" validate:"required"`
	To   string `mapstructure:"to" json:"to" validate:"required"`
}

// DefaultSyncOptions returns the options used when none are configured.
func DefaultSyncOptions() *SyncOptions {
	return &SyncOptions{}
}

// WithCollateSubstitutions returns SyncOptions with the given substitution rules, in order.
//
// Example:
//
//	opts := config.WithCollateSubstitutions(
//		config.CollateSubstitution{From: "utf8_general_ci", To: "utf8mb4_unicode_ci"},
//	)
func WithCollateSubstitutions(rules ...CollateSubstitution) *SyncOptions {
	return &SyncOptions{
		CollateSubstitutions: rules,
	}
}

// Validate reports whether the options can be used for a sync run.
func (o *SyncOptions) Validate() error {
	if err := newValidator().Struct(o); err != nil {
		return translateValidationError(err)
	}
	return nil
}

// ApplyDefaults fills in optional fields that were left empty.
func (c *Config) ApplyDefaults() {
	if c.Source.Port == 0 {
		c.Source.Port = DefaultPort
	}
	if c.Dest.Port == 0 {
		c.Dest.Port = DefaultPort
	}
}

// Validate checks that both connections name a host and a database and that
// every substitution rule is complete.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return translateValidationError(err)
	}
	return nil
}

func newValidator() *validator.Validate {
	return validator.New()
}

// translateValidationError maps validator failures onto the package sentinels so
// callers can tell a broken substitution rule from a missing connection field.
func translateValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var fields []string
	for _, fe := range verrs {
		if strings.Contains(fe.Namespace(), "CollateSubstitutions") {
			return fmt.Errorf("%w (%s)", ErrInvalidSubstitutionRule, fe.Namespace())
		}
		fields = append(fields, fmt.Sprintf("%s failed on '%s'", fieldPath(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, "; "))
}

// fieldPath turns "Config.Source.Host" into "source.host".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}
