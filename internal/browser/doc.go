// Package browser drives a real browser through the vendor's cascading
// dropdowns. Two interchangeable backends implement Session: a local
// headless Chrome controlled over the DevTools protocol, and Firefox
// reached through a W3C WebDriver endpoint (geckodriver or a Selenium
// server). Every call is bounded by a per-call timeout.
package browser
