package workflows

import "sort"

// sortedSkills returns a sorted copy of skills. Skill order from the
// classifier is arbitrary, so anything handed to an activity is sorted to keep
// activity inputs identical across replays and re-runs.
func sortedSkills(skills []string) []string {
	if len(skills) == 0 {
		return []string{}
	}
	result := make([]string, len(skills))
	copy(result, skills)
	sort.Strings(result)
	return result
}

// uniqueSorted removes duplicates and returns the result sorted. The input is
// not modified.
func uniqueSorted(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(s))
	result := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	sort.Strings(result)
	return result
}
