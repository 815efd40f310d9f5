package service

import (
	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/grading"
)

// assignmentTemplates is the fixed catalogue teachers can start from.
var assignmentTemplates = []dto.AssignmentTemplateResponse{
	{
		Key:           "recycling_audit",
		Title:         "Household Recycling Audit",
		Description:   "Track everything your household throws away for one week. Sort it into recyclable, compostable and landfill waste and suggest three changes.",
		Category:      "waste",
		MaxPoints:     100,
		RubricWeights: grading.RubricWeights{ContentAccuracy: 40, Uniqueness: 20, Relevance: 25, Quality: 15},
	},
	{
		Key:           "climate_essay",
		Title:         "Climate Change Essay",
		Description:   "Explain one cause and one effect of climate change in your region and propose an action your school could take.",
		Category:      "climate",
		MaxPoints:     100,
		RubricWeights: grading.RubricWeights{ContentAccuracy: 40, Uniqueness: 25, Relevance: 20, Quality: 15},
	},
	{
		Key:           "biodiversity_survey",
		Title:         "Schoolyard Biodiversity Survey",
		Description:   "Record the plants, insects and birds you find in a marked area of the schoolyard and present them in a table with photos or drawings.",
		Category:      "biodiversity",
		MaxPoints:     50,
		RubricWeights: grading.RubricWeights{ContentAccuracy: 35, Uniqueness: 15, Relevance: 30, Quality: 20},
	},
	{
		Key:           "energy_saving_plan",
		Title:         "Energy Saving Plan",
		Description:   "Measure the energy use of three appliances at home and write a plan that reduces consumption by at least ten percent.",
		Category:      "energy",
		MaxPoints:     100,
		RubricWeights: grading.RubricWeights{ContentAccuracy: 45, Uniqueness: 20, Relevance: 20, Quality: 15},
	},
	{
		Key:           "water_conservation_poster",
		Title:         "Water Conservation Poster",
		Description:   "Design a poster that teaches younger students two ways to save water at school.",
		Category:      "water",
		MaxPoints:     20,
		RubricWeights: grading.RubricWeights{ContentAccuracy: 25, Uniqueness: 30, Relevance: 20, Quality: 25},
	},
}

// AssignmentTemplates returns a copy of the template catalogue.
func AssignmentTemplates() []dto.AssignmentTemplateResponse {
	templates := make([]dto.AssignmentTemplateResponse, len(assignmentTemplates))
	copy(templates, assignmentTemplates)
	return templates
}

func findTemplate(key string) (dto.AssignmentTemplateResponse, bool) {
	for _, template := range assignmentTemplates {
		if template.Key == key {
			return template, true
		}
	}
	return dto.AssignmentTemplateResponse{}, false
}
