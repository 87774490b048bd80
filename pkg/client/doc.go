// Package client is the Go SDK for the clay community moderation API.
//
// It wraps the moderator endpoints: scoring text, working the report and
// appeal queues, and sanctioning users.
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := c.Login(ctx, "mod@example.com", password); err != nil {
//	    log.Fatal(err)
//	}
//
// # Working the report queue
//
//	reports, err := c.ListReports(ctx, "pending", 20)
//	for _, r := range reports {
//	    res, err := c.ResolveReport(ctx, r.ID, &client.ResolveReportRequest{
//	        Action:        "approve",
//	        ContentAction: "remove",
//	    })
//	    ...
//	}
//
// # Errors
//
// Non-2xx responses are returned as *APIError. It unwraps to the moderation
// error for its status, so callers can test with errors.Is:
//
//	if errors.Is(err, model.ErrConflict) {
//	    // another moderator got there first
//	}
package client
