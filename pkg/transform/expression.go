package transform

import (
	"fmt"

	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/utils"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmespath/go-jmespath"
)

// expressionCache compiles JMESPath queries and keeps the most recently used
// ones. JMESPath is a closed query language, so an expression step can read
// and reshape its input but never run code.
type expressionCache struct {
	cache *lru.Cache[string, *jmespath.JMESPath]
}

func newExpressionCache(size int) *expressionCache {
	cache, err := lru.New[string, *jmespath.JMESPath](size)
	if err != nil {
		panic(err)
	}
	return &expressionCache{cache: cache}
}

func (c *expressionCache) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	if compiled, ok := c.cache.Get(expression); ok {
		return compiled, nil
	}

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	c.cache.Add(expression, compiled)
	return compiled, nil
}

// Evaluate runs expression against data.
func (c *expressionCache) Evaluate(expression string, data any) (any, error) {
	compiled, err := c.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}

	return result, nil
}

// ValidateExpression reports whether expression compiles.
func (e *Evaluator) ValidateExpression(expression string) error {
	_, err := e.expressions.getOrCompile(expression)
	return err
}

func (e *Evaluator) evaluateExpression(step models.TransformationStep, data map[string]any, fallback string) string {
	if step.Expression == "" {
		return fallback
	}

	result, err := e.expressions.Evaluate(step.Expression, data)
	if err != nil {
		e.logFailure(step, err)
		return fallback
	}

	return utils.ToString(result)
}
