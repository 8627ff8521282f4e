package jobstore

import (
	"encoding/json"
	"os"
	"strings"
)

// notEvaluatedKey groups records without results in by-verdict reports.
const notEvaluatedKey = "not evaluated"

// EvaluationResults is the engine-owned sub-section of a job record. It is
// the only part of a record this tool ever writes.
type EvaluationResults struct {
	CVToRoleMatch             string `json:"cv_to_role_match"`
	DomainKnowledgeAssessment string `json:"domain_knowledge_assessment,omitempty"`
	NoGoRationale             string `json:"no_go_rationale,omitempty"`
	ApplicationNarrative      string `json:"application_narrative,omitempty"`
	EvaluationDate            string `json:"evaluation_date"`
}

// JobRecord is one scraped posting as the wider pipeline stores it. Fields
// owned by the scraper are read-only here.
type JobRecord struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
	ScrapedAt   string `json:"scraped_at,omitempty"`
	// DomainRequirements optionally narrows the evaluation prompt for this
	// record on top of the globally configured requirements.
	DomainRequirements []string           `json:"domain_requirements,omitempty"`
	EvaluationResults  *EvaluationResults `json:"evaluation_results,omitempty"`
}

// Evaluated reports whether the record already carries a usable verdict.
func (r *JobRecord) Evaluated() bool {
	return r != nil && r.EvaluationResults != nil && strings.TrimSpace(r.EvaluationResults.CVToRoleMatch) != ""
}

type Jobs struct {
	Items []*JobRecord
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) IDs() []string {
	ids := make([]string, 0, len(j.Items))
	for _, item := range j.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (j *Jobs) FindByID(id string) *JobRecord {
	for _, item := range j.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// ExcludeByID removes the targeted records from the list and returns the ids
// actually removed.
func (j *Jobs) ExcludeByID(targets []string) []string {
	var excluded []string
	for _, target := range targets {
		for idx, item := range j.Items {
			if item.ID == target {
				j.RemoveByIndex(idx)
				excluded = append(excluded, item.ID)
				break
			}
		}
	}
	return excluded
}

// RemoveByIndex removes a record from the list by index. Does not preserve order.
func (j *Jobs) RemoveByIndex(idx int) {
	j.Items[idx] = j.Items[len(j.Items)-1]
	j.Items = j.Items[:len(j.Items)-1]
}

// EvaluatedIDs returns the ids of records already carrying a verdict.
func (j *Jobs) EvaluatedIDs() []string {
	var ids []string
	for _, item := range j.Items {
		if item.Evaluated() {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// ExcludeEmptyDescription removes records whose description is blank and
// returns their ids. There is nothing to judge a fit against in them.
func (j *Jobs) ExcludeEmptyDescription() []string {
	var excluded []string
	for idx := 0; idx < len(j.Items); {
		if strings.TrimSpace(j.Items[idx].Description) == "" {
			excluded = append(excluded, j.Items[idx].ID)
			j.RemoveByIndex(idx)
			continue
		}
		idx++
	}
	return excluded
}

// ReportByVerdict groups records by their stored match level for a quick
// overview. Records without results land under "not evaluated".
func (j *Jobs) ReportByVerdict() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range j.Items {
		key := notEvaluatedKey
		entry := map[string]string{
			"id":      item.ID,
			"title":   item.Title,
			"company": item.Company,
			"url":     item.URL,
		}

		if item.Evaluated() {
			results := item.EvaluationResults
			key = results.CVToRoleMatch
			entry["evaluation_date"] = results.EvaluationDate
			if results.NoGoRationale != "" {
				entry["no_go_rationale"] = results.NoGoRationale
			}
			if results.ApplicationNarrative != "" {
				entry["application_narrative"] = results.ApplicationNarrative
			}
		}

		report[key] = append(report[key], entry)
	}
	return report
}

func (j *Jobs) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "fit-judge-jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j); err != nil {
		return "", err
	}
	return file.Name(), nil
}
