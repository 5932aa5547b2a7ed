package prompts

import "careerkit/internal/types"

// Templates are rendered with fmt indexed verbs:
//
//	%[1]s  user_input
//	%[2]s  job_description
//	%[3]s  job information: job_description when set, otherwise user_input

// DefaultUserPrompts holds the built-in user prompt of every tool
var DefaultUserPrompts = map[types.ToolType]string{
	types.ToolPortfolio: `You are an expert web developer helping early-career engineers create professional portfolios. 

Based on the following resume/information, generate a complete HTML portfolio website structure with embedded CSS.

User Information:
%[1]s

Requirements:
1. Create a single, responsive HTML file with embedded CSS
2. Include sections: Header, About, Skills, Projects, Experience, Contact
3. Use modern, clean design with professional colors
4. Make it mobile-responsive
5. Include placeholder content where information is missing
6. Use semantic HTML structure
7. Add smooth scrolling and hover effects

Generate only the HTML code with embedded CSS, no explanations.`,

	types.ToolResumeAnalyzer: `You are an expert ATS (Applicant Tracking System) specialist and career counselor.

Analyze the following resume against the job description and provide:
1. An ATS compatibility score (0-100)
2. Specific areas for improvement
3. Missing keywords from the job description
4. Formatting and structure feedback
5. Actionable recommendations

Resume Content:
%[1]s

Job Description:
%[2]s

Provide your analysis in JSON format:
{
  "ats_score": number,
  "missing_keywords": string[],
  "improvements": string[],
  "strengths": string[],
  "recommendations": string[]
}`,

	types.ToolCoverLetter: `You are an expert career counselor specializing in cover letter writing.

Write a professional, tailored cover letter based on:

Resume/Background:
%[1]s

Target Job Description:
%[2]s

Requirements:
1. Professional business format
2. 3-4 paragraphs maximum
3. Highlight relevant experience from the resume
4. Address specific requirements from the job description
5. Show enthusiasm for the role and company
6. Include a strong opening and closing

Generate only the cover letter text, no additional formatting or explanations.`,

	types.ToolResumeEnhancer: `You are an expert resume writer and career counselor.

Enhance the following resume to better match the target job description:

Current Resume:
%[1]s

Target Job Description:
%[2]s

Requirements:
1. Optimize keywords for ATS compatibility
2. Strengthen bullet points with quantifiable achievements
3. Reorder and emphasize relevant experience
4. Improve action verbs and impact statements
5. Maintain truthfulness while maximizing appeal
6. Keep the same general structure and format

Provide the enhanced resume content in a clean, professional format.`,

	types.ToolMockInterview: `You are an expert technical interviewer conducting a mock interview.

Based on the job role/description provided, generate 5 relevant interview questions:

Job Information:
%[3]s

Requirements:
1. Mix of behavioral and technical questions
2. Questions appropriate for the role level
3. Include follow-up prompts
4. Focus on real-world scenarios

Provide questions in JSON format:
{
  "questions": [
    {
      "question": "string",
      "type": "behavioral|technical",
      "follow_up": "string"
    }
  ]
}`,
}

// DefaultSystemPrompts is used when system prompts are enabled for a tool
// and nothing else is configured. The built-in user prompts already carry the
// persona, so these stay short.
var DefaultSystemPrompts = map[types.ToolType]string{
	types.ToolPortfolio:      "You are an expert web developer. Reply with a single HTML document only.",
	types.ToolResumeAnalyzer: "You are an ATS specialist. Reply with valid JSON only, without markdown fences.",
	types.ToolCoverLetter:    "You are a career counselor who writes concise, honest cover letters.",
	types.ToolResumeEnhancer: "You are a resume writer. Never invent experience that is not in the resume.",
	types.ToolMockInterview:  "You are a technical interviewer. Reply with valid JSON only, without markdown fences.",
}
