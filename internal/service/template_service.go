// internal/service/template_service.go
package service

import (
	"strings"
)

// RenderTemplate replaces {key} placeholders with values from data.
// Unknown placeholders are left in place.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// placeholderData builds the values boilerplate and content may reference.
func placeholderData(title, clientName, projectName, date string) map[string]string {
	return map[string]string{
		"campaign_title": title,
		"client_name":    clientName,
		"project_name":   projectName,
		"date":           date,
	}
}
