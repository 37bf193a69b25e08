package events

import "fmt"

// Tags follow the job lifecycle: a run announces itself, marks each
// operation as it is dispatched, streams one result per operation, then
// closes out. Subscribing to JobPrefix(jid) observes the whole run.

// JobPrefix matches every event a single job emits.
func JobPrefix(jid string) string {
	return fmt.Sprintf("job/%s/", jid)
}

// JobNewTag marks the start of a job.
func JobNewTag(jid string) string {
	return fmt.Sprintf("job/%s/new", jid)
}

// OpStartTag marks the dispatch of one operation.
func OpStartTag(jid, opID string) string {
	return fmt.Sprintf("job/%s/op/%s/start", jid, opID)
}

// OpResultTag carries one operation's finished result.
func OpResultTag(jid, opID string) string {
	return fmt.Sprintf("job/%s/op/%s/result", jid, opID)
}

// JobDoneTag marks the end of a job, carrying the run summary.
func JobDoneTag(jid string) string {
	return fmt.Sprintf("job/%s/done", jid)
}
