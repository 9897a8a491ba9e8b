package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetOverview = "Overview"
	sheetCourses  = "Courses"
	sheetStudents = "Students"
)

// ExportAdminMetrics xuất số liệu admin ra file XLSX gồm 3 sheet
func (s *MetricsService) ExportAdminMetrics(ctx context.Context, sess Session) ([]byte, error) {
	m, err := s.AdminMetrics(ctx, sess)
	if err != nil {
		return nil, err
	}
	return renderAdminWorkbook(m)
}

func renderAdminWorkbook(m *AdminMetrics) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetOverview); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetCourses, sheetStudents} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	overview := [][]interface{}{
		{"Metric", "Value"},
		{"Generated at", m.GeneratedAt.Format(time.RFC3339)},
		{"Total users", m.TotalUsers},
		{"Active users (30 days)", m.ActiveUsers},
		{"Total courses", m.TotalCourses},
		{"Published courses", m.PublishedCourses},
		{"Total lessons", m.TotalLessons},
		{"Total enrollments", m.TotalEnrollments},
		{"Completed enrollments", m.CompletedEnrollments},
		{"Total study hours", m.TotalStudyHours},
	}
	overview = append(overview, []interface{}{}, []interface{}{"Date", "Enrollments"})
	for _, d := range m.EnrollmentsByDay {
		overview = append(overview, []interface{}{d.Date, d.Count})
	}
	if err := writeRows(f, sheetOverview, overview); err != nil {
		return nil, err
	}

	courses := [][]interface{}{{"Course", "Published", "Lessons", "Enrollments", "Completions", "Completion rate (%)", "Average progress (%)"}}
	for _, c := range m.CourseStats {
		courses = append(courses, []interface{}{c.Title, c.IsPublished, c.TotalLessons, c.Enrollments, c.Completions, c.CompletionRate, c.AverageProgress})
	}
	if err := writeRows(f, sheetCourses, courses); err != nil {
		return nil, err
	}

	students := [][]interface{}{{"User ID", "Name", "Enrolled courses", "Completed courses", "Completed lessons", "Study hours", "Last activity"}}
	for _, u := range m.UserProgress {
		last := ""
		if u.LastActivity != nil {
			last = u.LastActivity.Format(time.RFC3339)
		}
		students = append(students, []interface{}{u.UserID.String(), u.Name, u.EnrolledCourses, u.CompletedCourses, u.CompletedLessons, u.StudyHours, last})
	}
	if err := writeRows(f, sheetStudents, students); err != nil {
		return nil, err
	}

	for _, sheet := range []string{sheetOverview, sheetCourses, sheetStudents} {
		if err := f.SetCellStyle(sheet, "A1", "G1", header); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "A", "G", 22); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}
