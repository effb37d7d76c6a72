package ask

const (
	// NoSummaryReply is shown when a successful reply lacks a summary.
	NoSummaryReply = "Sorry, no summary available."

	// FailureReply is shown for any failed request.
	FailureReply = "An error occurred. Please try again."
)

// ReplyText maps the outcome of one /ask call onto the text shown to the user.
func ReplyText(resp *Response, err error) string {
	if err != nil {
		return FailureReply
	}
	if summary, ok := resp.Summary(); ok {
		return summary
	}
	return NoSummaryReply
}
