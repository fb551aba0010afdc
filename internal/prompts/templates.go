package prompts

// ── Orchestration ───────────────────────────────────────────

// Classify asks for an intent classification.
// Vars: query, has_property.
const Classify = `You route questions about a website to specialised agents.

Agents:
- single_agent_a: Google Analytics 4 traffic data (users, sessions, page views, sources, devices, trends).
- single_agent_b: technical SEO crawl data (status codes, titles, meta descriptions, HTTPS, indexability).
- multi_agent: the question needs BOTH traffic data and SEO audit data.

A GA4 property id is available: {{has_property}}

=== USER QUERY ===
{{query}}

Respond with ONLY valid JSON:
{
  "intent": "single_agent_a|single_agent_b|multi_agent",
  "confidence": 0.0,
  "reasoning": "one sentence"
}`

// Decompose splits a multi-agent query into one sub-query per agent.
// Vars: query.
const Decompose = `Split the question below into two self-contained questions:
one answerable from Google Analytics 4 traffic data (sub_query_a) and one
answerable from a technical SEO crawl (sub_query_b). Each must make sense on
its own.

=== USER QUERY ===
{{query}}

Respond with ONLY valid JSON:
{
  "sub_query_a": "analytics question",
  "sub_query_b": "SEO question"
}`

// Aggregate merges the two agent answers.
// Vars: query, result_a, result_b.
const Aggregate = `You combine findings from two analysts into one answer.

=== USER QUESTION ===
{{query}}

=== ANALYTICS FINDINGS (GA4) ===
{{result_a}}

=== SEO FINDINGS (crawl audit) ===
{{result_b}}

=== YOUR TASK ===
Write one clear answer to the user's question that connects both sets of
findings. Use specific numbers from the findings. If a set of findings is
missing or reports an error, say so plainly and do not invent data for it.`

// Tools describes the ReAct tool set.
const Tools = `Available Tools:
1. agent_a_query: Query Google Analytics 4 for traffic data, users, sessions, page views, etc.
   - Use when: User asks about traffic, users, sessions, page views, sources, devices, trends
   - Input: Natural language query about analytics

2. agent_b_query: Query SEO audit data for technical issues, status codes, titles, HTTPS, indexability.
   - Use when: User asks about SEO issues, meta tags, titles, HTTPS, indexability, status codes
   - Input: Natural language query about SEO

3. final_answer: Provide the final answer to the user
   - Use when: You have enough information to fully answer the user's question
   - Input: The complete answer to return to the user`

// Think asks for the next ReAct step.
// Vars: tools, query, history, iteration, max_iterations.
const Think = `You are an intelligent AI assistant that answers questions about web analytics and SEO.
You have access to tools to gather information. Think step by step about what you need to do.

{{tools}}

=== USER QUESTION ===
{{query}}

=== PREVIOUS ACTIONS AND OBSERVATIONS ===
{{history}}

=== CURRENT ITERATION ===
Iteration {{iteration}} of {{max_iterations}}

=== YOUR TASK ===

Think about:
1. What is the user actually asking for?
2. What information have I gathered so far?
3. What information do I still need?
4. Which tool should I use next, OR do I have enough to answer?

If you have gathered enough information to fully answer the question, use the "final_answer" tool.
If you need more information, choose the appropriate tool (agent_a_query or agent_b_query).

Respond in this JSON format:
{
  "thought": "Your reasoning about what to do next",
  "action": {
    "tool": "agent_a_query|agent_b_query|final_answer",
    "input": "The query/input for the tool OR the final answer text"
  }
}

Respond with ONLY valid JSON.`

// NoHistory stands in for an empty ReAct history.
const NoHistory = "None yet - this is the first iteration."

// Synthesize builds a best-effort answer when the loop stops without a
// final answer. Vars: query, observations.
const Synthesize = `Based on the following observations gathered to answer the user's question,
provide a comprehensive final answer.

=== USER QUESTION ===
{{query}}

=== GATHERED INFORMATION ===
{{observations}}

=== YOUR TASK ===
Synthesize all the information into a clear, comprehensive answer.
Include specific numbers, insights, and recommendations where applicable.`

// ── Analytics agent ─────────────────────────────────────────

// AnalyticsPlan converts a question into a GA4 reporting plan.
// Vars: metrics, dimensions, query.
const AnalyticsPlan = `You are an expert Google Analytics 4 (GA4) query planner. Convert the question into a precise GA4 reporting plan.

=== AVAILABLE GA4 METRICS (use EXACT names) ===
{{metrics}}

METRIC MAPPINGS:
- "page views" -> "screenPageViews"
- "users" or "visitors" -> "activeUsers" (or "totalUsers" for unique count)
- "new users" -> "newUsers"
- "sessions" or "visits" -> "sessions"
- "session duration" or "time on site" -> "averageSessionDuration"

=== AVAILABLE GA4 DIMENSIONS (use EXACT names) ===
{{dimensions}}

DIMENSION MAPPINGS:
- "page" or "URL" -> "pagePath"
- "location" -> "country" (or "city")
- "device" -> "deviceCategory"
- "source" -> "sessionSource", "medium" -> "sessionMedium", "campaign" -> "sessionCampaignName"

=== DATE RANGES ===
Prefer relative dates: "today", "yesterday", "NdaysAgo". "last week" is 7daysAgo..today,
"last month" is 30daysAgo..today. Absolute dates use YYYY-MM-DD. Default to the last 7 days.

=== RULES ===
- 3-5 relevant metrics, at most 3 dimensions.
- Trends or daily breakdowns MUST include the "date" dimension.
- Specific pages, countries or devices become filters ("==" exact, "contains" partial).
- "top N" means order by the metric descending.

=== USER QUERY ===
{{query}}

Output ONLY valid JSON matching this structure:
{
  "metrics": ["metricName1", "metricName2"],
  "dimensions": ["dimensionName1"],
  "date_range": {"start_date": "NdaysAgo", "end_date": "today"},
  "filters": [{"dimension": "dimensionName", "operator": "==", "value": "filterValue"}],
  "order_by": [{"field": "metricOrDimensionName", "desc": true}]
}`

// AnalyticsExplain turns GA4 rows into an answer.
// Vars: query, metrics, dimensions, start_date, end_date, filters, data, total_rows.
const AnalyticsExplain = `You are an expert data analyst specializing in web analytics. Interpret Google Analytics 4 data and explain it clearly to non-technical users.

=== USER'S QUESTION ===
{{query}}

=== GA4 QUERY DETAILS ===
Metrics analyzed: {{metrics}}
Dimensions: {{dimensions}}
Time period: {{start_date}} to {{end_date}}
Filters applied: {{filters}}

=== RAW DATA FROM GOOGLE ANALYTICS ===
{{data}}

Total rows: {{total_rows}}

=== YOUR TASK ===
1. DIRECT ANSWER (1-2 sentences) with specific numbers.
2. KEY INSIGHTS (2-4 bullet points): trends, top performers, outliers.
3. CONTEXT (optional, 1-2 sentences).

Format large numbers with commas and percentages to 1 decimal place. If the
data is sparse, say so and report what is available.

Now provide your analysis:`

// ── SEO agent ───────────────────────────────────────────────

// SEOPlan converts a question into a crawl analysis plan.
// Vars: schema, query.
const SEOPlan = `You are an expert SEO data analyst specializing in technical SEO audits. Convert the question into a precise data analysis plan.

=== AVAILABLE SEO DATA ===
{{schema}}

This data is from a Screaming Frog crawl of the website.

=== COMMON COLUMNS ===
URL: "Address". Protocol: "Protocol". Status: "Status Code".
Title: "Title 1", "Title 1 Length". Meta description: "Meta Description 1", "Meta Description 1 Length".
Indexability: "Indexability", "Indexability Status". Content: "Word Count". Links: "Inlinks", "Outlinks".

=== OPERATIONS ===
filter (find pages matching criteria), group (count pages by category),
aggregate (statistics), calculate (percentages), list (plain listing).

=== OPERATORS ===
==, !=, contains, not_contains, >, <, >=, <=

=== USER QUERY ===
{{query}}

Use "json" as output_format only if the user explicitly asks for JSON or structured data.

Output as JSON:
{
  "operation": "filter|group|aggregate|calculate|list",
  "columns": ["Column1", "Column2"],
  "conditions": [{"column": "Name", "operator": "op", "value": "val"}],
  "group_by": "ColumnName" or null,
  "aggregate": "count|sum|mean|min|max" or null,
  "output_format": "text|json"
}

Respond with ONLY JSON, no explanatory text.`

// SEOExplain turns crawl analysis results into an answer.
// Vars: query, operation, columns, conditions, group_by, aggregate, data, total_results.
const SEOExplain = `You are an expert SEO consultant analyzing technical audit data. Explain the findings clearly and give actionable insights.

=== USER'S QUESTION ===
{{query}}

=== ANALYSIS PERFORMED ===
Operation: {{operation}}
Columns analyzed: {{columns}}
Filters applied: {{conditions}}
Grouping: {{group_by}}
Aggregation: {{aggregate}}

=== RESULTS FROM SEO AUDIT ===
{{data}}

Total results: {{total_results}}

=== YOUR TASK ===
1. SUMMARY (1-2 sentences) with the key number.
2. DETAILED FINDINGS (2-4 points) citing specific pages.
3. SEO IMPACT (1-2 sentences).
4. RECOMMENDATIONS (2-3 prioritized items, optional).

Use specific numbers. When showing grouped data, include percentages.

Now provide your SEO analysis:`
