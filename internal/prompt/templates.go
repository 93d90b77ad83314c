package prompt

// Instructions open every prompt and fix the model's role and output format.
const (
	compilerInstruction = `ZERO_TOLERANCE_MODE: OUTPUT ONLY THE RAW TERMINAL TEXT. NO MARKDOWN. NO EXPLANATIONS. NO CODE RE-STATEMENT.`
	runtimeInstruction  = `ACT AS A HIGH-AVAILABILITY SYSTEM KERNEL. OUTPUT ONLY THE LITERAL STDOUT OF THE PROGRAM.`
	refactorInstruction = `ACT AS A SENIOR CODE ARCHITECT. REFACTOR THE PROVIDED CODE TO BE MORE ROBUST AND PERFORMANT. OUTPUT ONLY CODE.`
	generateInstruction = `ACT AS A SENIOR SOFTWARE ENGINEER. GENERATE PRODUCTION-READY CODE FOR THE GIVEN PROBLEM. OUTPUT ONLY CODE.`

	explainInstruction    = `ACT AS A SENIOR CODE ARCHITECT AND TECHNICAL WRITER. PROVIDE A CLEAR, STEP-BY-STEP EXPLANATION OF THE PROVIDED CODE logic. USE MARKDOWN. BE PRECISE.`
	debugInstruction      = `ACT AS A SENIOR DEBUGGER. IDENTIFY LOGICAL ERRORS, POTENTIAL BUGS, AND EDGE CASES IN THE PROVIDED CODE. PROVIDE FIXES.`
	optimizeInstruction   = `ACT AS A PERFORMANCE ENGINEER. ANALYZE TIME AND SPACE COMPLEXITY AND PROVIDE AN OPTIMIZED VERSION OF THE CODE.`
	docsInstruction       = `ACT AS A DOCUMENTATION SPECIALIST. GENERATE PROFESSIONAL DOCSTRINGS, COMMENTS, AND README SNIPPETS FOR THE CODE.`
	complexityInstruction = `ACT AS A COMPUTER SCIENCE PROFESSOR. ANALYZE THE CODE AND PROVIDE A DETAILED BIG-O COMPLEXITY REPORT (TIME & SPACE).`
	refineInstruction     = `ACT AS A CRITICAL EDITOR. REFACTOR THE PROVIDED AI EXPLANATION TO BE MORE PRECISE, CONCISE, AND TECHNICALLY ACCURATE. REMOVE FLUFF.`

	htmlGenerateInstruction = `ACT AS A SENIOR FRONTEND DEVELOPER. GENERATE SEMANTIC HTML5. OUTPUT ONLY CODE.`
	cssGenerateInstruction  = `ACT AS A SENIOR CSS ARCHITECT. GENERATE RESPONSIVE MODERN CSS. OUTPUT ONLY CODE.`
	jsGenerateInstruction   = `ACT AS A SENIOR JAVASCRIPT DEVELOPER. GENERATE EFFICIENT JS. OUTPUT ONLY CODE.`
)

// Task templates. Placeholders are {name} and are filled in a single pass.
const (
	reviewTemplate = "CODE CONTEXT:\n```{language}\n{code}\n```\n\nPREVIOUS OUTPUT:\n{output}\n\nTASK: {task_description}\n\nINSTRUCTION: Provide a comprehensive and professional response."

	generateTemplate     = `TASK: Solve in {language}: {problem_description}. Output ONLY code. No markdown.`
	refactorTemplate     = `TASK: Optimize {language} code: {code}. Previous Output: {output}. Output ONLY code.`
	refactorUserTemplate = `TASK: Refactor {language} code for: {problem_description}. Code: {code}. Previous Output: {output}. Output ONLY code.`

	simulateTemplate = "TASK: Simulate running the following {language} program at {time}.\n```{language}\n{code}\n```"
	simulateInputs   = "\n\nPROVIDED USER INPUTS (to be used when the code requests input):\n{stdin}\n"
	simulateNoInputs = "\n\nNO USER INPUTS PROVIDED."
	simulateRules    = "\n\nIMPORTANT: \n" +
		"1. PROVIDE ONLY THE TERMINAL OUTPUT (TEXT).\n" +
		"2. DO NOT INCLUDE THE SOURCE CODE OR EXPLAIN.\n" +
		"3. If the code requires user input and it is NOT provided or exhausted, return ONLY: value needed\n\n" +
		"TERMINAL OUTPUT:"

	refinementTemplate = "{instruction}\n\nORIGINAL DRAFT:\n{draft}\n\nCONTEXT CODE:\n{code}"

	htmlTemplate = `TASK: Generate specific HTML for: {prompt}. Rules: No head/body, no inline scripts/styles. Output ONLY code.`
	cssTemplate  = `TASK: Generate CSS for: {project_description}. HTML Context: {html_content}. Rules: Responsive only. Output ONLY code.`
	jsTemplate   = `TASK: Generate JS for: {project_description}. HTML/CSS Context: {html_content} / {css_content}. Rules: ES6+. Output ONLY code.`

	refactorHTMLTemplate = `TASK: Refactor this HTML: {html_content}`
	refactorCSSTemplate  = `TASK: Refactor this CSS (Context HTML): {html_content} / CSS: {css_content}`
	refactorJSTemplate   = `TASK: Refactor this JS (Context HTML/CSS): {html_content} / {css_content} / JS: {js_content}`

	refactorHTMLUserTemplate = `TASK: Refactor this HTML to fix: {problem_description}. HTML: {html_content}`
	refactorCSSUserTemplate  = `TASK: Refactor this CSS to fix: {problem_description}. HTML: {html_content} CSS: {css_content}`
	refactorJSUserTemplate   = `TASK: Refactor this JS to fix: {problem_description}. HTML: {html_content} CSS: {css_content} JS: {js_content}`
)
