package db

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"gorm.io/gorm"
)

type TopicRecord struct {
	Category string
	Text     string
}

// LoadTopicLibrary reads topics from a CSV and upserts them into the
// topic_library table. It returns how many rows were read.
func LoadTopicLibrary(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	records, err := ReadTopics(file)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, record := range records {
		entry := TopicLibrary{
			Category: record.Category,
			Text:     record.Text,
		}
		if err := conn.FirstOrCreate(&entry, TopicLibrary{Category: entry.Category, Text: entry.Text}).Error; err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// ReadTopics parses a topic CSV with a header row. Rows are either
// "category,text" or a single "text" column.
func ReadTopics(r io.Reader) ([]TopicRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var records []TopicRecord
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		record := TopicRecord{}
		if len(row) >= 2 {
			record.Category = strings.TrimSpace(row[0])
			record.Text = strings.TrimSpace(row[1])
		} else {
			record.Text = strings.TrimSpace(row[0])
		}
		if record.Text == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// ListTopics returns the library texts, optionally restricted to category.
func ListTopics(ctx context.Context, conn *gorm.DB, category string) ([]string, error) {
	if conn == nil {
		return nil, nil
	}
	query := conn.WithContext(ctx).Model(&TopicLibrary{}).Order("id asc")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var topics []string
	if err := query.Pluck("text", &topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}
