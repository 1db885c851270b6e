package mcpserver

// PostFormatContract describes the Markdown post files the indexer reads,
// for LLM consumers that draft posts for a human to commit.
const PostFormatContract = `# Smark Post Format

Every post is a UTF-8 Markdown file whose name, without ` + "`" + `.md` + "`" + `, is its slug.

## Structure

` + "```" + `markdown
---
uuid: 0b6f7c0e-2a55-4c1e-9a57-2d4b8b0c3f11   # REQUIRED, unique across all posts
title: Human-readable title                  # REQUIRED
description: One line summary                # REQUIRED
lang: en                                     # OPTIONAL, ja (default) or en
category: notes                              # REQUIRED, one value
tags:                                        # OPTIONAL, list of strings
  - go
  - search
created_at: "2022-01-11T19:22:50+09:00"      # OPTIONAL, filled in on first index
updated_at: "2022-01-11T19:22:50+09:00"      # OPTIONAL, bumped when content changes
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. The ` + "`" + `---` + "`" + ` line must be the first line of the file.
2. Keys are written in the order shown above; the indexer rewrites files in that order.
3. Dates accept RFC 3339, RFC 2822, or a custom notation such as ` + "`" + `2022/01/11 19:22:50` + "`" + `.
   Rewritten dates keep the notation they were written in.
4. A slug is unique per language. The same slug may exist once for ja and once for en.
5. HTML comments (` + "`" + `<!-- ... -->` + "`" + `) are not searchable and are removed by ` + "`" + `normalize` + "`" + `.
6. Tags are strings or integers; any other YAML value is rejected.
`
