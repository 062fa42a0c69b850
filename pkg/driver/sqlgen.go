package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

// CompileBody compiles an abstract query body to a SQL native query.
//
// Selected fields become the SELECT list in order. An FK-traversal reference
// adds a LEFT JOIN of the target table, joined through the source field's
// fk_target_field. Joins are deduplicated by alias, so many traversals
// through the same foreign key share one join.
func CompileBody(ctx context.Context, body *core.QueryBody, resolver core.FieldResolver, dialect *Dialect) (*core.NativeQuery, error) {
	if body == nil {
		return nil, fmt.Errorf("nil query body")
	}
	if len(body.Fields) == 0 {
		return nil, fmt.Errorf("query body selects no fields")
	}
	if dialect == nil {
		dialect = &Dialect{}
	}

	source, err := resolver.Table(ctx, body.SourceTable)
	if err != nil {
		return nil, fmt.Errorf("resolve source table %d: %w", body.SourceTable, err)
	}

	c := &bodyCompiler{
		ctx:      ctx,
		resolver: resolver,
		dialect:  dialect,
		source:   source,
		joinSeen: make(map[string]bool),
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, ref := range body.Fields {
		expr, alias, err := c.fieldExpr(ref)
		if err != nil {
			return nil, fmt.Errorf("compile field %s: %w", ref, err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(expr)
		sb.WriteString(" AS ")
		sb.WriteString(dialect.QuoteIdentifier(alias))
	}

	sb.WriteString(" FROM ")
	sb.WriteString(c.quoteTable(source))

	for _, join := range c.joins {
		sb.WriteString(" ")
		sb.WriteString(join)
	}

	if len(body.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, clause := range body.OrderBy {
			expr, _, err := c.fieldExpr(clause.Field)
			if err != nil {
				return nil, fmt.Errorf("compile order-by %s: %w", clause.Field, err)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(expr)
			if clause.Direction == core.OrderDesc {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	}

	if body.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", body.Limit)
	}

	return &core.NativeQuery{SQL: sb.String()}, nil
}

type bodyCompiler struct {
	ctx      context.Context
	resolver core.FieldResolver
	dialect  *Dialect
	source   *core.Table
	joins    []string
	joinSeen map[string]bool
}

// fieldExpr renders a field reference as a qualified, quoted SQL expression
// and returns the output column alias for it. FK traversals register their
// join as a side effect.
func (c *bodyCompiler) fieldExpr(ref core.FieldRef) (expr, alias string, err error) {
	switch r := ref.(type) {
	case core.FieldByID:
		f, err := c.resolver.Field(c.ctx, r.ID)
		if err != nil {
			return "", "", err
		}
		if f.TableID != c.source.ID {
			return "", "", fmt.Errorf("field %q is not on source table %q", f.Name, c.source.Name)
		}
		return c.qualify(c.source.Name, f.Name), f.Name, nil

	case core.FieldViaFK:
		srcRef, ok := r.Source.(core.FieldByID)
		if !ok {
			return "", "", fmt.Errorf("unsupported traversal source %s", r.Source)
		}
		dstRef, ok := r.Dest.(core.FieldByID)
		if !ok {
			return "", "", fmt.Errorf("unsupported traversal dest %s", r.Dest)
		}

		srcField, err := c.resolver.Field(c.ctx, srcRef.ID)
		if err != nil {
			return "", "", err
		}
		if srcField.FKTargetFieldID == nil {
			return "", "", fmt.Errorf("field %q is not a foreign key", srcField.Name)
		}
		targetField, err := c.resolver.Field(c.ctx, *srcField.FKTargetFieldID)
		if err != nil {
			return "", "", err
		}
		dstField, err := c.resolver.Field(c.ctx, dstRef.ID)
		if err != nil {
			return "", "", err
		}
		if dstField.TableID != targetField.TableID {
			return "", "", fmt.Errorf("field %q is not on the table %q points at", dstField.Name, srcField.Name)
		}
		targetTable, err := c.resolver.Table(c.ctx, targetField.TableID)
		if err != nil {
			return "", "", err
		}

		joinAlias := fmt.Sprintf("%s__via__%s", targetTable.Name, srcField.Name)
		c.addJoin(joinAlias, targetTable, srcField, targetField)

		alias = fmt.Sprintf("%s__via__%s", dstField.Name, srcField.Name)
		return c.qualify(joinAlias, dstField.Name), alias, nil

	default:
		return "", "", fmt.Errorf("unsupported field reference %s", ref)
	}
}

func (c *bodyCompiler) addJoin(alias string, target *core.Table, srcField, targetField *core.Field) {
	if c.joinSeen[alias] {
		return
	}
	c.joinSeen[alias] = true

	join := fmt.Sprintf("LEFT JOIN %s AS %s ON %s = %s",
		c.quoteTable(target),
		c.dialect.QuoteIdentifier(alias),
		c.qualify(c.source.Name, srcField.Name),
		c.qualify(alias, targetField.Name),
	)
	c.joins = append(c.joins, join)
}

func (c *bodyCompiler) qualify(table, column string) string {
	return c.dialect.QuoteIdentifier(table) + "." + c.dialect.QuoteIdentifier(column)
}

func (c *bodyCompiler) quoteTable(t *core.Table) string {
	if t.Schema != "" {
		return c.dialect.QuoteIdentifier(t.Schema) + "." + c.dialect.QuoteIdentifier(t.Name)
	}
	return c.dialect.QuoteIdentifier(t.Name)
}
