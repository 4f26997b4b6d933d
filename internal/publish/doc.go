// Package publish moves ready jobs to the upload destination under a daily
// quota budget.
//
// The coordinator computes the remaining budget from the day's recorded
// uploads, walks ready jobs oldest first, and stops as soon as the next
// upload would overrun the budget. Upload failures leave the job ready with
// the error recorded; the content is still valid and a later pass will try
// again. Publish failures never count against the pipeline retry ceiling.
package publish
