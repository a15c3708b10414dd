package registry

import (
	"context"
	"sort"

	"github.com/aanand-mishra/health-registry/internal/types"
)

// Uncategorized labels programs created without a category.
const Uncategorized = "Uncategorized"

// Dashboard summarises the registry: totals plus chart data for program
// categories and enrollments per month (UTC, "2006-01", oldest first).
func (s *Service) Dashboard(ctx context.Context) (types.Dashboard, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return types.Dashboard{}, err
	}
	programs, err := s.ListPrograms(ctx)
	if err != nil {
		return types.Dashboard{}, err
	}
	enrollments, err := s.ListEnrollments(ctx)
	if err != nil {
		return types.Dashboard{}, err
	}

	categories := make(map[string]int)
	for _, p := range programs {
		category := Uncategorized
		if p.Category != nil && *p.Category != "" {
			category = *p.Category
		}
		categories[category]++
	}

	months := make(map[string]int)
	for _, e := range enrollments {
		months[e.EnrolledAt.UTC().Format("2006-01")]++
	}

	return types.Dashboard{
		Clients:     len(clients),
		Programs:    len(programs),
		Enrollments: len(enrollments),
		Categories:  chart("Programs", categories),
		Trend:       chart("Enrollments", months),
	}, nil
}

// chart turns counts into a single-dataset chart with sorted labels.
func chart(label string, counts map[string]int) types.Chart {
	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	data := make([]int, len(labels))
	for i, k := range labels {
		data[i] = counts[k]
	}

	return types.Chart{
		Labels:   labels,
		Datasets: []types.Dataset{{Label: label, Data: data}},
	}
}
