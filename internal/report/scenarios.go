package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/the-split-must-flow/internal/common"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/validation"
)

// DefaultScenarios is the batch run when no scenario file is given.
var DefaultScenarios = []model.Query{
	{Place: "평촌쪽갈비", Hour: 19, Amount: 70000},
	{Place: "맥도날드 평촌점", Hour: 20, Amount: 30000},
	{Place: "스타벅스 범계점", Hour: 18, Amount: 15000},
	{Place: "교촌치킨 평촌점", Hour: 19, Amount: 40000},
	{Place: "김밥천국", Hour: 19, Amount: 20000},
}

type scenarioFile struct {
	Scenarios []model.Query `yaml:"scenarios"`
}

// LoadScenarios reads queries from YAML. Both a bare list and a document
// with a top-level "scenarios" list are accepted.
//
//	scenarios:
//	  - place: Cafe X
//	    hour: 18
//	    amount: 10200
//	    k: 2
func LoadScenarios(r io.Reader) ([]model.Query, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}
	if len(node.Content) == 0 {
		return []model.Query{}, nil
	}

	var queries []model.Query
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		err = node.Content[0].Decode(&queries)
	case yaml.MappingNode:
		var file scenarioFile
		err = node.Content[0].Decode(&file)
		queries = file.Scenarios
	default:
		err = errors.New("expected a list of scenarios")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}

	for i := range queries {
		if verr := validation.ValidateStruct(&queries[i]); verr != nil {
			return nil, fmt.Errorf("scenario %d: %w: %v", i+1, common.ErrInvalidQuery, verr)
		}
	}
	if queries == nil {
		queries = []model.Query{}
	}
	return queries, nil
}

// ScenarioKey names a query in batch output as place_hour_amount, with a
// _k<n> suffix when the query overrides the neighbour count.
func ScenarioKey(q model.Query) string {
	key := q.Place + "_" + strconv.Itoa(q.Hour) + "_" + strconv.FormatInt(q.Amount, 10)
	if q.K > 0 {
		key += "_k" + strconv.Itoa(q.K)
	}
	return key
}
