// Package datasettest provides a small in-memory repositories table for tests.
package datasettest

import "repo-explorer/internal/dataset"

func str(s string) *string { return &s }

func score(f float64) *float64 { return &f }

// Records returns the fixture rows. alpha/tied-a and alpha/tied-b share a
// star count so ranking tie-breaks can be checked.
func Records() []dataset.Repository {
	return []dataset.Repository{
		{ID: 1, FullName: "ucla/tied-b", University: "UCLA", Type: "DEV", Language: "Python", License: str("MIT"), Stars: 500, Forks: 40, Downloads: 1200, ContributorCount: 12, BusFactor: 2, Readme: str("README.md"), SecurityPolicy: str("SECURITY.md"), Contributing: str("CONTRIBUTING.md"), Affiliation: score(0.95)},
		{ID: 2, FullName: "ucla/tied-a", University: "UCLA", Type: "RESEARCH", Language: "Python", License: str("Apache-2.0"), Stars: 500, Forks: 10, Downloads: 0, ContributorCount: 3, BusFactor: 1, Affiliation: score(0.9)},
		{ID: 3, FullName: "ucla/small", University: "UCLA", Type: "RESEARCH", Language: "R", License: nil, Stars: 100, Forks: 2, ContributorCount: 1, BusFactor: 1, Affiliation: score(0.85)},
		{ID: 4, FullName: "ucla/tiny", University: "UCLA", Type: "DEV", Language: "JavaScript", License: str("MIT"), Stars: 3, Forks: 0, ContributorCount: 1, BusFactor: 1, Affiliation: score(0.5)},
		{ID: 5, FullName: "berkeley/spark-tools", University: "UCB", Type: "DEV", Language: "Scala", License: str("Apache-2.0"), Stars: 2500, Forks: 300, Downloads: 45000, ContributorCount: 80, BusFactor: 6, Readme: str("README.md"), SecurityPolicy: str("SECURITY.md"), Contributing: str("CONTRIBUTING.md"), CodeOfConduct: str("CODE_OF_CONDUCT.md"), IssueTemplates: str(".github/ISSUE_TEMPLATE"), PullRequestTemplate: str(".github/PULL_REQUEST_TEMPLATE.md"), Affiliation: score(0.99)},
		{ID: 6, FullName: "berkeley/notebooks", University: "UCB", Type: "RESEARCH", Language: "Python", License: nil, Stars: 150, Forks: 25, ContributorCount: 4, BusFactor: 1, Affiliation: score(0.8)},
		{ID: 7, FullName: "cmu/robot-os", University: "CMU", Type: "RESEARCH", Language: "C++", License: str("BSD-3-Clause"), Stars: 1200, Forks: 210, Downloads: 980, ContributorCount: 35, BusFactor: 3, Readme: str("README.md"), Contributing: str("CONTRIBUTING.md"), IssueTemplates: str(".github/ISSUE_TEMPLATE"), Affiliation: score(0.97)},
		{ID: 8, FullName: "cmu/course-site", University: "CMU", Type: "EDU", Language: "JavaScript", License: str("MIT"), Stars: 40, Forks: 12, ContributorCount: 6, BusFactor: 2, Readme: str("")},
		{ID: 9, FullName: "cmu/parser", University: "CMU", Type: "DEV", Language: "Rust", License: str("MIT"), Stars: 1200, Forks: 50, Downloads: 3000, ContributorCount: 9, BusFactor: 2, SecurityPolicy: str(".github/SECURITY.md"), Affiliation: score(0.92)},
	}
}

// Aliases maps acronyms used in utterances to university values.
func Aliases() map[string]string {
	return map[string]string{
		"Berkeley":        "UCB",
		"Carnegie Mellon": "CMU",
		"UC Los Angeles":  "UCLA",
	}
}

// Store returns a loaded store over Records.
func Store() *dataset.Store {
	return dataset.NewStore(Records(), Aliases())
}
