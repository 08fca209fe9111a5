package dataset

import "strings"

// Unspecified is the group key used for records without a license.
const Unspecified = "unspecified"

type Dimension string

const (
	DimUniversity Dimension = "university"
	DimLanguage   Dimension = "language"
	DimLicense    Dimension = "license"
	DimType       Dimension = "type"
)

// Dimensions lists every categorical column the translator can resolve against.
var Dimensions = []Dimension{DimUniversity, DimLanguage, DimLicense, DimType}

type Metric string

const (
	MetricStars        Metric = "stars"
	MetricForks        Metric = "forks"
	MetricDownloads    Metric = "downloads"
	MetricContributors Metric = "contributors"
)

var Metrics = []Metric{MetricStars, MetricForks, MetricDownloads, MetricContributors}

// Repository is one row of the repositories table. Column names follow the
// cleaned parquet export.
type Repository struct {
	ID                  int64    `parquet:"id,optional" json:"id"`
	FullName            string   `parquet:"full_name,optional" json:"full_name"`
	Owner               string   `parquet:"owner,optional" json:"owner,omitempty"`
	University          string   `parquet:"university,optional" json:"university"`
	Type                string   `parquet:"type_prediction_gpt_5_mini,optional" json:"type"`
	Language            string   `parquet:"language,optional" json:"language"`
	License             *string  `parquet:"license,optional" json:"license,omitempty"`
	Description         string   `parquet:"description,optional" json:"description,omitempty"`
	HTMLURL             string   `parquet:"html_url,optional" json:"html_url,omitempty"`
	Stars               int64    `parquet:"stargazers_count,optional" json:"stars"`
	Forks               int64    `parquet:"forks_count,optional" json:"forks"`
	Downloads           int64    `parquet:"release_downloads,optional" json:"downloads"`
	ContributorCount    int64    `parquet:"contributor_count,optional" json:"contributor_count"`
	BusFactor           float64  `parquet:"bus_factor,optional" json:"bus_factor"`
	Readme              *string  `parquet:"readme,optional" json:"-"`
	CodeOfConduct       *string  `parquet:"code_of_conduct_file,optional" json:"code_of_conduct_file,omitempty"`
	Contributing        *string  `parquet:"contributing,optional" json:"contributing,omitempty"`
	SecurityPolicy      *string  `parquet:"security_policy,optional" json:"security_policy,omitempty"`
	IssueTemplates      *string  `parquet:"issue_templates,optional" json:"issue_templates,omitempty"`
	PullRequestTemplate *string  `parquet:"pull_request_template,optional" json:"pull_request_template,omitempty"`
	Affiliation         *float64 `parquet:"affiliation_prediction_gpt_5_mini,optional" json:"affiliation,omitempty"`
}

// CommunityFile names a repository health file counted by the overview.
type CommunityFile string

const (
	FileDescription         CommunityFile = "description"
	FileReadme              CommunityFile = "readme"
	FileLicense             CommunityFile = "license"
	FileCodeOfConduct       CommunityFile = "code_of_conduct_file"
	FileContributing        CommunityFile = "contributing"
	FileSecurityPolicy      CommunityFile = "security_policy"
	FileIssueTemplates      CommunityFile = "issue_templates"
	FilePullRequestTemplate CommunityFile = "pull_request_template"
)

var CommunityFiles = []CommunityFile{
	FileDescription, FileReadme, FileLicense, FileCodeOfConduct,
	FileContributing, FileSecurityPolicy, FileIssueTemplates, FilePullRequestTemplate,
}

// Has reports whether the column for f holds a value. A null column means
// the file is missing; any string, even empty, means it was found.
func (r Repository) Has(f CommunityFile) bool {
	switch f {
	case FileDescription:
		return r.Description != ""
	case FileLicense:
		return r.License != nil
	case FileReadme:
		return r.Readme != nil
	case FileCodeOfConduct:
		return r.CodeOfConduct != nil
	case FileContributing:
		return r.Contributing != nil
	case FileSecurityPolicy:
		return r.SecurityPolicy != nil
	case FileIssueTemplates:
		return r.IssueTemplates != nil
	case FilePullRequestTemplate:
		return r.PullRequestTemplate != nil
	}
	return false
}

// LicenseName returns the license or Unspecified when absent.
func (r Repository) LicenseName() string {
	if r.License == nil {
		return Unspecified
	}
	if l := strings.TrimSpace(*r.License); l != "" && !strings.EqualFold(l, "none") {
		return l
	}
	return Unspecified
}

func (r Repository) HasLicense() bool {
	return r.LicenseName() != Unspecified
}

// Value returns the categorical value of r for d.
func (r Repository) Value(d Dimension) string {
	switch d {
	case DimUniversity:
		return r.University
	case DimLanguage:
		return r.Language
	case DimLicense:
		return r.LicenseName()
	case DimType:
		return r.Type
	}
	return ""
}

// Measure returns the numeric value of r for m.
func (r Repository) Measure(m Metric) int64 {
	switch m {
	case MetricStars:
		return r.Stars
	case MetricForks:
		return r.Forks
	case MetricDownloads:
		return r.Downloads
	case MetricContributors:
		return r.ContributorCount
	}
	return 0
}

func (r Repository) normalize() Repository {
	r.Stars = nonNegative(r.Stars)
	r.Forks = nonNegative(r.Forks)
	r.Downloads = nonNegative(r.Downloads)
	r.ContributorCount = nonNegative(r.ContributorCount)
	r.University = strings.TrimSpace(r.University)
	r.Language = strings.TrimSpace(r.Language)
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	if r.Owner == "" {
		r.Owner, _, _ = strings.Cut(r.FullName, "/")
	}
	if r.License != nil {
		l := strings.TrimSpace(*r.License)
		if l == "" || strings.EqualFold(l, "none") || strings.EqualFold(l, "null") {
			r.License = nil
		} else {
			r.License = &l
		}
	}
	return r
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ParseDimension maps a user-facing word ("universities", "project type",
// "languages"...) to a Dimension.
func ParseDimension(word string) (Dimension, bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	w = strings.TrimPrefix(w, "the ")
	switch w {
	case "university", "universities", "school", "schools", "institution", "institutions", "uni", "unis":
		return DimUniversity, true
	case "language", "languages", "programming language", "programming languages", "lang":
		return DimLanguage, true
	case "license", "licenses", "licence", "licences", "licensing":
		return DimLicense, true
	case "type", "types", "project type", "project types", "category", "categories", "kind", "kinds":
		return DimType, true
	}
	return "", false
}

// ParseMetric maps "stars", "starred", "forks", ... to a Metric.
func ParseMetric(word string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "star", "stars", "starred", "stargazers", "popularity", "popular":
		return MetricStars, true
	case "fork", "forks", "forked":
		return MetricForks, true
	case "download", "downloads", "downloaded", "release downloads":
		return MetricDownloads, true
	case "contributor", "contributors", "contributor count":
		return MetricContributors, true
	}
	return "", false
}
