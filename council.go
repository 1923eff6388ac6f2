package main

import (
	"context"
	"fmt"
	"strings"
)

// RunStatus tracks a council run through its lifecycle.
type RunStatus string

const (
	StatusIdle          RunStatus = "idle"
	StatusStage1Running RunStatus = "stage1_running"
	StatusStage1Done    RunStatus = "stage1_done"
	StatusStage2Running RunStatus = "stage2_running"
	StatusStage2Done    RunStatus = "stage2_done"
	StatusStage3Running RunStatus = "stage3_running"
	StatusCompleted     RunStatus = "completed"
	StatusAborted       RunStatus = "aborted"
)

// CouncilRun carries all per-run state through the pipeline. Runs are
// independent: nothing here is shared between conversations, so concurrent
// runs cannot interfere. Terminal status is Completed or Aborted, after which
// the run is handed to the caller for persistence.
type CouncilRun struct {
	ConversationID string
	Status         RunStatus
	Stage1         []Stage1Response
	Stage1Failures []StageFailure
	Labels         *LabelMap
	Stage2         []Stage2Ranking
	Aggregate      []AggregateRanking
	Stage3         *Stage3Response
}

// Council drives the three-stage process: parallel individual answers,
// anonymized peer ranking, chairman synthesis. Stages run strictly in
// sequence; calls within a stage run concurrently. Safe for concurrent use
// across conversations.
type Council struct {
	client   ModelClient
	models   []CouncilModel
	chairman CouncilModel
	titles   *TitleCache
}

// NewCouncil builds a council over the configured roster and chairman.
func NewCouncil(client ModelClient) *Council {
	return &Council{
		client:   client,
		models:   CouncilModels,
		chairman: ChairmanModel,
		titles:   NewTitleCache(client, TitleModel),
	}
}

// Run executes the full pipeline for one user message, emitting progress
// events in stage order. Cancellation is observed at stage boundaries: a
// cancelled context stops the run before the next stage, but calls already in
// flight are left to finish or time out on their own. Exactly one terminal
// outcome is reported - a fatal condition emits an error frame and returns an
// error, otherwise the run reaches Completed and the caller finishes the
// stream with a complete frame after persisting.
func (c *Council) Run(ctx context.Context, conversationID, userQuery string, em *EventEmitter) (*CouncilRun, error) {
	run := &CouncilRun{ConversationID: conversationID, Status: StatusIdle}

	// Stage 1: every council model answers independently
	if err := ctx.Err(); err != nil {
		return c.abort(run, em, "run cancelled", err)
	}
	run.Status = StatusStage1Running
	em.Emit(StreamEvent{Type: EventStage1Start})

	stage1, failures := c.Stage1CollectResponses(ctx, userQuery)
	run.Stage1 = stage1
	run.Stage1Failures = failures
	if len(stage1) == 0 {
		return c.abort(run, em, "all council models failed to respond", fmt.Errorf("stage 1: all %d council models failed", len(c.models)))
	}
	run.Status = StatusStage1Done
	em.Emit(StreamEvent{Type: EventStage1Complete, Data: stage1})

	// Stage 2: the successful responders judge each other, anonymized
	if err := ctx.Err(); err != nil {
		return c.abort(run, em, "run cancelled", err)
	}
	run.Status = StatusStage2Running
	em.Emit(StreamEvent{Type: EventStage2Start})

	stage2, labels := c.Stage2CollectRankings(ctx, userQuery, stage1)
	run.Stage2 = stage2
	run.Labels = labels
	run.Aggregate = CalculateAggregateRankings(stage2, labels)
	run.Status = StatusStage2Done
	em.Emit(StreamEvent{
		Type: EventStage2Complete,
		Data: stage2,
		Metadata: Metadata{
			LabelToModel:      labels.ToMap(),
			AggregateRankings: run.Aggregate,
		},
	})

	// Stage 3: the chairman synthesizes the final answer
	if err := ctx.Err(); err != nil {
		return c.abort(run, em, "run cancelled", err)
	}
	run.Status = StatusStage3Running
	em.Emit(StreamEvent{Type: EventStage3Start})

	stage3, err := c.Stage3SynthesizeFinal(ctx, userQuery, stage1, run.Aggregate)
	if err != nil {
		// No fallback synthesis: a chairman failure is fatal
		return c.abort(run, em, fmt.Sprintf("Stage 3 failed: %v", err), err)
	}
	run.Stage3 = stage3
	run.Status = StatusCompleted
	em.Emit(StreamEvent{Type: EventStage3Complete, Data: stage3})

	return run, nil
}

// abort marks the run Aborted and emits the terminal error frame.
func (c *Council) abort(run *CouncilRun, em *EventEmitter, message string, err error) (*CouncilRun, error) {
	run.Status = StatusAborted
	em.Error(message)
	return run, err
}

// Stage1CollectResponses asks every council model the user's question in
// parallel and waits for all of them to settle. Failed calls are isolated:
// they surface as StageFailure entries, never abort the stage, and contribute
// nothing to the success set.
func (c *Council) Stage1CollectResponses(ctx context.Context, userQuery string) ([]Stage1Response, []StageFailure) {
	messages := []ChatMessage{
		{Role: "user", Content: userQuery},
	}

	results := invokeAll(ctx, c.client, c.models, messages)

	var stage1Results []Stage1Response
	var failures []StageFailure
	for _, result := range results {
		if result.Err != nil {
			failures = append(failures, StageFailure{
				Model:     result.Model.ID,
				ErrorKind: string(result.Err.Kind),
				Message:   result.Err.Message,
			})
			continue
		}
		stage1Results = append(stage1Results, Stage1Response{
			Model:    result.Model.ID,
			Response: result.Text,
		})
	}

	return stage1Results, failures
}

// Stage2CollectRankings has the Stage 1 responders rank each other's answers
// under fresh anonymized labels. Only models that answered in Stage 1 act as
// judges - a model that already failed is not asked again. Unparsable or
// failed ranking calls are kept (or logged) without aborting the stage.
func (c *Council) Stage2CollectRankings(ctx context.Context, userQuery string, stage1Results []Stage1Response) ([]Stage2Ranking, *LabelMap) {
	labels := NewLabelMap(stage1Results)

	rankingPrompt := buildRankingPrompt(userQuery, labels, stage1Results)
	messages := []ChatMessage{
		{Role: "user", Content: rankingPrompt},
	}

	judges := c.judgesFor(stage1Results)
	results := invokeAll(ctx, c.client, judges, messages)

	var stage2Results []Stage2Ranking
	for _, result := range results {
		if result.Err != nil {
			// Already logged by invokeAll; one silent judge doesn't stop the vote
			continue
		}
		parsed, ok := ParseRankingFromText(result.Text, labels)
		stage2Results = append(stage2Results, Stage2Ranking{
			Model:         result.Model.ID,
			Ranking:       result.Text,
			ParsedRanking: parsed,
			ParseOK:       ok,
		})
	}

	return stage2Results, labels
}

// judgesFor filters the roster down to the models in the Stage 1 success set.
func (c *Council) judgesFor(stage1Results []Stage1Response) []CouncilModel {
	succeeded := make(map[string]bool, len(stage1Results))
	for _, r := range stage1Results {
		succeeded[r.Model] = true
	}

	var judges []CouncilModel
	for _, m := range c.models {
		if succeeded[m.ID] {
			judges = append(judges, m)
		}
	}
	return judges
}

// Stage3SynthesizeFinal asks the chairman for the final answer, given the
// original question, every Stage 1 response, and the aggregate ranking.
// Any error here is fatal to the run; there is no fallback synthesis path.
func (c *Council) Stage3SynthesizeFinal(ctx context.Context, userQuery string, stage1Results []Stage1Response, aggregate []AggregateRanking) (*Stage3Response, error) {
	chairmanPrompt := buildChairmanPrompt(userQuery, stage1Results, aggregate)
	messages := []ChatMessage{
		{Role: "user", Content: chairmanPrompt},
	}

	text, err := c.client.Invoke(ctx, c.chairman.ID, messages, c.chairman.Timeout)
	if err != nil {
		return nil, fmt.Errorf("chairman model query failed: %w", err)
	}

	return &Stage3Response{
		Model:    c.chairman.ID,
		Response: text,
	}, nil
}

// GenerateTitle produces a short conversation title for the first message,
// memoized for the process lifetime.
func (c *Council) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	return c.titles.GetOrCompute(ctx, firstMessage)
}

// buildRankingPrompt renders the anonymized peer-review prompt. It contains
// labels and response texts only - never model identifiers.
func buildRankingPrompt(userQuery string, labels *LabelMap, stage1Results []Stage1Response) string {
	return fmt.Sprintf(`You are evaluating different responses to the following question:

Question: %s

Here are the responses from different models (anonymized):

%s

Your task:
1. First, evaluate each response individually. For each response, explain what it does well and what it does poorly.
2. Then, at the very end of your response, provide a final ranking.

IMPORTANT: Your final ranking MUST be formatted EXACTLY as follows:
- Start with the line "FINAL RANKING:" (all caps, with colon)
- Then list the responses from best to worst as a numbered list
- Each line should be: number, period, space, then ONLY the response label (e.g., "1. Response 1")
- Do not add any other text or explanations in the ranking section

Example of the correct format for your ENTIRE response:

Response 1 provides good detail on X but misses Y...
Response 2 is accurate but lacks depth on Z...
Response 3 offers the most comprehensive answer...

FINAL RANKING:
1. Response 3
2. Response 1
3. Response 2

Now provide your evaluation and ranking:`, userQuery, labels.RenderAnonymized(stage1Results))
}

// buildChairmanPrompt renders the synthesis prompt for Stage 3.
func buildChairmanPrompt(userQuery string, stage1Results []Stage1Response, aggregate []AggregateRanking) string {
	var stage1Text strings.Builder
	for _, result := range stage1Results {
		stage1Text.WriteString(fmt.Sprintf("Model: %s\nResponse: %s\n\n", result.Model, result.Response))
	}

	var rankingText strings.Builder
	for i, entry := range aggregate {
		if entry.RankingsCount == 0 {
			rankingText.WriteString(fmt.Sprintf("%d. %s - not ranked by any peer\n", i+1, entry.Model))
			continue
		}
		rankingText.WriteString(fmt.Sprintf("%d. %s - average rank %.2f across %d peer rankings\n",
			i+1, entry.Model, entry.AverageRank, entry.RankingsCount))
	}
	if len(aggregate) == 0 {
		rankingText.WriteString("No usable peer rankings were collected.\n")
	}

	return fmt.Sprintf(`You are the Chairman of an LLM Council. Multiple AI models have provided responses to a user's question, and then ranked each other's responses anonymously.

Original Question: %s

STAGE 1 - Individual Responses:
%s

STAGE 2 - Aggregate Peer Ranking (best first):
%s

Your task as Chairman is to synthesize all of this information into a single, comprehensive, accurate answer to the user's original question. Consider:
- The individual responses and their insights
- The aggregate ranking and what it reveals about response quality
- Any patterns of agreement or disagreement

Provide a clear, well-reasoned final answer that represents the council's collective wisdom:`, userQuery, stage1Text.String(), rankingText.String())
}

// RunFullCouncil runs the complete 3-stage council process without streaming.
// Progress events are discarded; only the final run result is returned.
func RunFullCouncil(ctx context.Context, council *Council, conversationID, userQuery string) (*CouncilRun, error) {
	return council.Run(ctx, conversationID, userQuery, NewEventEmitter(NullSink{}))
}
