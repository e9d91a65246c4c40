package main

import (
	"fmt"
	"strings"

	"github.com/lunagic/hestia/hestiaservices/database"
	"github.com/lunagic/hestia/hestiatools"
	"github.com/spf13/cobra"
)

// statementFlags describe a single table select on the command line.
type statementFlags struct {
	table   string
	columns []string
	wheres  []string
	orders  []string
	limit   int
	offset  int
}

func (flags *statementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flags.table, "table", "t", "", "table to select from")
	cmd.Flags().StringSliceVarP(&flags.columns, "select", "s", nil, "columns to select")
	cmd.Flags().StringArrayVarP(&flags.wheres, "where", "w", nil, "column=value equality, repeatable")
	cmd.Flags().StringArrayVarP(&flags.orders, "order", "o", nil, "column or column:desc, repeatable")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum rows")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "rows to skip")
	_ = cmd.MarkFlagRequired("table")
}

func (flags *statementFlags) apply(query *database.QueryBuilder) (*database.QueryBuilder, error) {
	if len(flags.columns) > 0 {
		query.Select(flags.columns...)
	}

	wheres := hestiatools.Filter(flags.wheres, func(where string) bool {
		return strings.TrimSpace(where) != ""
	})

	for _, where := range wheres {
		column, value, found := strings.Cut(where, "=")
		if !found || strings.TrimSpace(column) == "" {
			return nil, fmt.Errorf("invalid where %q, expected column=value", where)
		}

		query.Where(strings.TrimSpace(column), "=", value)
	}

	for _, order := range flags.orders {
		column, direction, _ := strings.Cut(order, ":")
		if direction == "" {
			direction = "asc"
		}

		query.OrderBy(column, direction)
	}

	if flags.limit > 0 {
		query.Limit(flags.limit)
	}

	if flags.offset > 0 {
		query.Offset(flags.offset)
	}

	return query, query.Err()
}
