// Package temporal wires the triage pipeline to Temporal.
//
// It holds the client used by intake and the HTTP layer to start runs, the
// worker manager used by cmd/worker, and the types both sides share. Workflow
// definitions live in the workflows subpackage and activities in activities;
// neither is imported here, so callers start runs by registered name:
//
//	tc := temporal.NewTriageWorkflowClient(c, cfg.Temporal.TaskQueue)
//	res, err := tc.StartTriage(ctx, temporal.TriageInput{TicketID: id, Source: "kafka"})
//	if err != nil {
//	    return err
//	}
//	if res.Deduplicated {
//	    // a run for this ticket already exists
//	}
//
// Starting a run is idempotent per ticket. The workflow ID is derived from the
// ticket ID, a running or completed run rejects a second start, and only a
// failed run may be replaced.
package temporal
