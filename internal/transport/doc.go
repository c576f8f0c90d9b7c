// Package transport builds the HTTP client the crawler fetches through.
//
// Requests go direct, through the proxy named by the standard proxy
// environment variables, or through an explicit HTTP or SOCKS5 proxy.
// The client keeps a cookie jar, because the statistics site answers the
// first request with an anti-crawler cookie that later requests must send.
package transport
