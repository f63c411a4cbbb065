package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Helper functions for parsing query parameters

// getIntParam safely parses an integer query parameter with a default value
func getIntParam(c *gin.Context, param string, defaultValue int) int {
	value := c.Query(param)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// getBoolParam safely parses a boolean query parameter with a default value
func getBoolParam(c *gin.Context, param string, defaultValue bool) bool {
	value := c.Query(param)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// getUUIDParam safely parses a UUID query parameter
func getUUIDParam(c *gin.Context, param string) *uuid.UUID {
	value := c.Query(param)
	if value == "" {
		return nil
	}

	parsed, err := uuid.Parse(value)
	if err != nil {
		return nil
	}

	return &parsed
}

// File upload helpers

// validateFileSize validates uploaded file size
func validateFileSize(size int64, maxSize int64) error {
	if size > maxSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size %d bytes", size, maxSize)
	}
	return nil
}

// validateFileExtension validates the uploaded file extension against the
// configured allow list
func validateFileExtension(filename string, allowedTypes []string) error {
	ext := getFileExtension(filename)
	for _, allowed := range allowedTypes {
		if ext == strings.ToLower(strings.TrimSpace(allowed)) {
			return nil
		}
	}
	return fmt.Errorf("file type %s not allowed", ext)
}

// getFileExtension gets file extension from filename
func getFileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}
