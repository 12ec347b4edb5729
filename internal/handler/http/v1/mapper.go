package v1

import "github.com/shenikar/road_clearing_system/internal/models"

// DTOToRequestInput преобразует DTO подачи заявки во входные данные сервиса
func DTOToRequestInput(dto CreateRequestRequest) models.RequestInput {
	return models.RequestInput{
		ReporterName:  dto.ReporterName,
		ContactNumber: dto.ContactNumber,
		Barangay:      dto.Barangay,
		StreetAddress: dto.StreetAddress,
		Description:   dto.Description,
		Status:        dto.Status,
		Latitude:      dto.Latitude,
		Longitude:     dto.Longitude,
	}
}

// ModelToRequestResponse преобразует доменную модель в DTO для ответа
func ModelToRequestResponse(model *models.RoadClearingRequest) *RequestResponse {
	return &RequestResponse{
		RequestID:     model.RequestID,
		ReporterName:  model.ReporterName,
		ContactNumber: model.ContactNumber,
		Barangay:      model.Barangay,
		StreetAddress: model.StreetAddress,
		Description:   model.Description,
		Status:        model.Status,
		Latitude:      model.Latitude,
		Longitude:     model.Longitude,
		H3Cell:        model.H3Cell,
		ReportedAt:    model.ReportedAt,
		LastUpdated:   model.LastUpdated,
	}
}

// ModelsToRequestResponses преобразует слайс моделей в слайс DTO
func ModelsToRequestResponses(models []*models.RoadClearingRequest) []*RequestResponse {
	responses := make([]*RequestResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToRequestResponse(model)
	}
	return responses
}
