package phonecomplete

import (
	"github.com/sirupsen/logrus"

	"github.com/remiges-tech/phonecomplete/phone"
)

// defaultMaxResults is the total number of matches a search returns at most.
const defaultMaxResults = 6

// defaultAreaCodeWidth is the number of digits skipped when the user omitted
// the domestic area code.
const defaultAreaCodeWidth = 3

// defaultCountryCodeWidth is the number of characters skipped after "+" when
// the user omitted an international country code.
const defaultCountryCodeWidth = 2

// defaultCloseMatchMinLength is the shortest domestic query that is also
// matched by edit distance.
const defaultCloseMatchMinLength = 9

// defaultCloseMatchBudget minus the query length gives the allowed edit
// distance, so longer queries tolerate fewer typos.
const defaultCloseMatchBudget = 11

// defaultProgressEvery is how often, in records, the builder logs progress.
const defaultProgressEvery = 1000

// defaultMaxQueryLength bounds the cleaned query length.
const defaultMaxQueryLength = 32

// NotReadyPolicy decides what a search does before the index is ready.
type NotReadyPolicy int

const (
	// RejectNotReady fails the search with ErrNotReady.
	RejectNotReady NotReadyPolicy = iota
	// WaitForReady blocks the search until the running build completes or the
	// search context is done. With no build running it fails with ErrNotReady.
	WaitForReady
)

// Quotas caps how many results each query strategy may contribute, counted
// over the head of the strategy's sorted result, duplicates included.
type Quotas struct {
	// Prefix is the domestic exact-prefix strategy.
	Prefix int
	// CloseMatch is the domestic edit-distance strategy.
	CloseMatch int
	// AreaCodeOmitted is the domestic strategy that skips the area code.
	AreaCodeOmitted int
	// CountryCodeOmitted is the domestic strategy that skips any country code.
	CountryCodeOmitted int
	// Substring is the domestic fallback strategy.
	Substring int

	// IntlPrefix is the international strategy matching the query as typed.
	IntlPrefix int
	// IntlCountryCode is the international strategy that skips the country code.
	IntlCountryCode int
	// IntlSubstring is the international fallback strategy.
	IntlSubstring int
}

// DefaultQuotas returns the standard strategy quotas.
func DefaultQuotas() Quotas {
	return Quotas{
		Prefix:             3,
		CloseMatch:         3,
		AreaCodeOmitted:    3,
		CountryCodeOmitted: 2,
		Substring:          2,
		IntlPrefix:         3,
		IntlCountryCode:    3,
		IntlSubstring:      2,
	}
}

// Config holds configuration for the phone completion service.
type Config struct {
	// SourceConfig contains source-specific configuration.
	// Each source defines its own config struct type.
	SourceConfig interface{}

	// Options contains common service behavior settings.
	Options Options
}

// Options contains common service behavior settings.
// Use DefaultOptions() for default values.
type Options struct {
	// DomesticPrefix is prepended to numbers typed without "+".
	// Default: "+01".
	DomesticPrefix string

	// AreaCodeWidth is the number of characters skipped after DomesticPrefix
	// when matching queries typed without an area code.
	// Default: 3.
	AreaCodeWidth int

	// CountryCodeWidth is the number of characters skipped after "+" when
	// matching queries typed without a country code.
	// Default: 2.
	CountryCodeWidth int

	// MaxResults caps the merged result list.
	// Default: 6.
	MaxResults int

	// Quotas caps each strategy's contribution. A zero Quotas value uses
	// DefaultQuotas.
	Quotas Quotas

	// CloseMatchMinLength is the shortest domestic query also matched by edit distance.
	// Default: 9.
	CloseMatchMinLength int

	// CloseMatchBudget minus the query length is the allowed edit distance.
	// Default: 11.
	CloseMatchBudget int

	// MaxQueryLength rejects longer cleaned queries with ErrQueryTooLong.
	// No phone number comes close; the bound keeps pasted text away from
	// the substring and edit-distance walks. Zero disables the check.
	// Default: 32.
	MaxQueryLength int

	// PhoneFields are the record fields holding phone numbers.
	// Dotted paths address nested document fields.
	// Default: daytime_phone, evening_phone.
	PhoneFields []string

	// BatchSize is passed to the source as a scan batch hint.
	// Zero uses the source default.
	BatchSize int

	// ProgressEvery logs build progress every N records. Zero disables.
	// Default: 1000.
	ProgressEvery int

	// NotReadyPolicy decides whether searches before the first build fail or wait.
	// Default: RejectNotReady.
	NotReadyPolicy NotReadyPolicy

	// CacheSize is the number of distinct queries whose results are cached
	// per published index. Zero disables the cache.
	// Default: 0.
	CacheSize int

	// Logger receives build and lifecycle logs.
	// Default: logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{
		DomesticPrefix:      phone.DefaultDomesticPrefix,
		AreaCodeWidth:       defaultAreaCodeWidth,
		CountryCodeWidth:    defaultCountryCodeWidth,
		MaxResults:          defaultMaxResults,
		Quotas:              DefaultQuotas(),
		CloseMatchMinLength: defaultCloseMatchMinLength,
		CloseMatchBudget:    defaultCloseMatchBudget,
		MaxQueryLength:      defaultMaxQueryLength,
		PhoneFields:         []string{"daytime_phone", "evening_phone"},
		ProgressEvery:       defaultProgressEvery,
		NotReadyPolicy:      RejectNotReady,
		Logger:              logrus.StandardLogger(),
	}
}

// NewConfig creates a new configuration with default options.
func NewConfig(sourceConfig interface{}) Config {
	return Config{
		SourceConfig: sourceConfig,
		Options:      DefaultOptions(),
	}
}

// NewConfigWithOptions creates a new configuration with custom options.
func NewConfigWithOptions(sourceConfig interface{}, options Options) Config {
	return Config{
		SourceConfig: sourceConfig,
		Options:      options,
	}
}

// withDefaults fills settings whose zero value is never meaningful. A zero
// Quotas value means "not set"; to disable single strategies set the others.
func (o Options) withDefaults() Options {
	if o.DomesticPrefix == "" {
		o.DomesticPrefix = phone.DefaultDomesticPrefix
	}
	if o.AreaCodeWidth <= 0 {
		o.AreaCodeWidth = defaultAreaCodeWidth
	}
	if o.CountryCodeWidth <= 0 {
		o.CountryCodeWidth = defaultCountryCodeWidth
	}
	if o.MaxResults <= 0 {
		o.MaxResults = defaultMaxResults
	}
	if o.Quotas == (Quotas{}) {
		o.Quotas = DefaultQuotas()
	}
	if o.CloseMatchMinLength <= 0 {
		o.CloseMatchMinLength = defaultCloseMatchMinLength
	}
	if o.CloseMatchBudget <= 0 {
		o.CloseMatchBudget = defaultCloseMatchBudget
	}
	if len(o.PhoneFields) == 0 {
		o.PhoneFields = []string{"daytime_phone", "evening_phone"}
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}
