package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"orders-dashboard/internal/models"
	"orders-dashboard/internal/services"
)

const dateLayout = "2006-01-02"

// Форматы ответа списка заказов
const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

// viewQuery описывает параметры запроса представления заказов
type viewQuery struct {
	Params    models.ViewParams
	Table     models.TableState
	Highlight bool
	Format    string
}

// parseViewParams читает фильтры: start_date, end_date, department, problem_only
func parseViewParams(r *http.Request, loc *time.Location) (models.ViewParams, error) {
	query := r.URL.Query()
	var params models.ViewParams

	start, err := parseDate(query.Get("start_date"), "start_date", loc)
	if err != nil {
		return params, err
	}
	end, err := parseDate(query.Get("end_date"), "end_date", loc)
	if err != nil {
		return params, err
	}
	params.DateRange = models.DateRange{StartDate: start, EndDate: end}

	if _, ok := query["department"]; ok {
		department := query.Get("department")
		params.Department = &department
	}

	if params.ProblemOnly, err = parseBool(query.Get("problem_only"), "problem_only"); err != nil {
		return params, err
	}

	if err := services.ValidateParams(params); err != nil {
		return params, err
	}
	return params, nil
}

// parseViewQuery дополнительно читает состояние таблицы и формат ответа
func parseViewQuery(r *http.Request, table *services.TableView, loc *time.Location) (*viewQuery, error) {
	params, err := parseViewParams(r, loc)
	if err != nil {
		return nil, err
	}

	query := r.URL.Query()
	result := &viewQuery{Params: params, Table: table.DefaultState()}

	if result.Highlight, err = parseBool(query.Get("highlight"), "highlight"); err != nil {
		return nil, err
	}

	if sorting := query.Get("sort"); sorting != "" {
		parsed, err := services.ParseSorting(sorting)
		if err != nil {
			return nil, err
		}
		result.Table.Sorting = parsed
	}

	pageSize, err := parseIntWithDefault(query.Get("page_size"), result.Table.Pagination.PageSize)
	if err != nil {
		return nil, fmt.Errorf("page_size must be an integer")
	}
	if result.Table, err = table.SetPageSize(result.Table, pageSize); err != nil {
		return nil, err
	}

	page, err := parseIntWithDefault(query.Get("page"), 0)
	if err != nil || page < 0 {
		return nil, fmt.Errorf("page must be a non-negative integer")
	}
	result.Table = table.SetPage(result.Table, page)

	result.Format = strings.ToLower(query.Get("format"))
	switch result.Format {
	case "":
		result.Format = formatJSON
	case formatJSON, formatCSV, formatXLSX:
	default:
		return nil, fmt.Errorf("format must be one of: json, csv, xlsx")
	}

	return result, nil
}

func parseDate(value, name string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid '%s' date, expected YYYY-MM-DD", name)
	}
	return &parsed, nil
}

func parseBool(value, name string) (bool, error) {
	if value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", name)
	}
	return parsed, nil
}
