// Package browser provides an embeddable Go client for fetchcascade: an
// intelligent web-fetching engine that escalates through a cost-ordered
// cascade of render tiers (direct API replay, lightweight HTTP, full
// browser automation), learns reusable API patterns from what it sees,
// predicts when content is due to change, and indexes every successful
// fetch into a semantic vector store.
//
// # In-process client
//
//	client, _ := browser.New(ctx,
//	    browser.WithRedis("localhost:6379", ""),
//	    browser.WithBrowserFactory(myPlaywrightFactory),
//	)
//	defer client.Close()
//
//	res, err := client.Browse(ctx, fetch.BrowseRequest{URL: "https://example.org/docs"})
//	if err != nil { ... }
//	fmt.Println(res.Content.Markdown)
//
// # Batch browsing
//
//	results := client.BatchBrowse(ctx, []fetch.BrowseRequest{
//	    {URL: "https://example.org/a"},
//	    {URL: "https://example.org/b"},
//	})
//
// # Introspection
//
//	intel := client.DomainIntelligence(ctx, "example.org")
//	stats := client.LearningStats(ctx)
package browser
