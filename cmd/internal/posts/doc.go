// Package posts implements post creation for authenticated users.
//
// The owner of a new post is always the verified identity of the request that
// created it; request bodies cannot influence it.
package posts
