// Package pushover provides a client for the Pushover message API.
//
// A message goes through three steps:
//   - Request.Validate and Request.Fields build the form body
//   - Client.Submit sends it and returns the request id and, for
//     emergency priority, a receipt
//   - Poller.Wait queries the receipt until the message is acknowledged,
//     expires, or the receipt endpoint fails too often in a row
//
// Example usage:
//
//	client := pushover.NewClient()
//	creds := pushover.Credentials{Token: "app-token", User: "user-key"}
//
//	result, err := client.Submit(ctx, creds, pushover.Request{
//	    Message:  "disk full on db-1",
//	    Priority: pushover.PriorityEmergency,
//	    Retry:    60,
//	    Expire:   3600,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	poll, err := pushover.NewPoller(client).Wait(ctx, creds, result.Receipt)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(poll.State)
package pushover
