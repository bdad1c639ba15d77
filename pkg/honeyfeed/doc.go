// Package honeyfeed classifies cowrie honeypot log lines into security
// events: new connections, successful logins, executed commands, port scans
// and ended sessions.
//
// Quick start:
//
//	c, err := honeyfeed.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ev, ok := c.Classify(ctx, "2024-01-01T00:00:01+0000 [HoneyPotSSHTransport,5,203.0.113.9] CMD: uname -a")
//	if ok {
//	    fmt.Println(ev.Summary) // 203.0.113.9 ran: uname -a
//	}
//
// A Classifier remembers per-address session state (first connection, login
// name, scanner flag), so feed it lines in log order. It is safe for
// concurrent use, but interleaving lines from several goroutines makes that
// order arbitrary.
package honeyfeed
